// Package estimate produces the closed-form seed for the parameter
// search. The binning curve is transformed into a point cloud and two
// line segments are fitted to it: the slope of the first segment
// estimates the periodic-selection rate (sigma), the slope of the second
// the ecotype-formation rate (omega), and their intersection the number
// of ecotypes (npop).
package estimate

import (
	"errors"
	"fmt"
	"math"

	"github.com/gonum/matrix/mat64"
	"github.com/op/go-logging"

	"bitbucket.org/ecotype/ecosim/binning"
	"bitbucket.org/ecotype/ecosim/sim"
)

var log = logging.MustGetLogger("estimate")

// ErrDegenerateFit is returned when the two fitted segments have equal
// slopes and no intersection exists.
var ErrDegenerateFit = errors.New("degenerate fit: equal slopes")

// maxSegmentError is the squared perpendicular distance above which a
// point no longer belongs to the segment being grown.
const maxSegmentError = 0.1

// slopeEps is the slope difference below which two fitted lines are
// considered parallel.
const slopeEps = 1e-9

// Point is one transformed bin level: x is the number of substitutions
// implied by the similarity criterion, y the log2 of the cluster count.
type Point struct {
	X, Y float64
}

// Line is a least-squares fit y = M*x + B.
type Line struct {
	M, B float64
}

// NewLine fits a line to the points by ordinary least squares.
func NewLine(points []Point) (Line, error) {
	if len(points) < 2 {
		return Line{}, fmt.Errorf("need at least two points, got %d", len(points))
	}
	a := mat64.NewDense(len(points), 2, nil)
	y := mat64.NewDense(len(points), 1, nil)
	for i, point := range points {
		a.Set(i, 0, point.X)
		a.Set(i, 1, 1)
		y.Set(i, 0, point.Y)
	}
	var x mat64.Dense
	if err := x.Solve(a, y); err != nil {
		return Line{}, fmt.Errorf("line fit: %v", err)
	}
	return Line{M: x.At(0, 0), B: x.At(1, 0)}, nil
}

// SquaredError is the squared perpendicular distance of the point from
// the line.
func (l Line) SquaredError(p Point) float64 {
	e := math.Abs(-l.M*p.X+p.Y-l.B) / math.Sqrt(l.M*l.M+1)
	return e * e
}

// Intersection returns the point where two lines cross.
func (l Line) Intersection(o Line) (Point, error) {
	if math.Abs(l.M-o.M) < slopeEps {
		return Point{}, ErrDegenerateFit
	}
	x := (o.B - l.B) / (l.M - o.M)
	return Point{X: x, Y: l.M*x + l.B}, nil
}

// Points transforms the binning curve into the point cloud the segments
// are fitted to. Single-cluster levels carry no slope information and
// are dropped, as are consecutive duplicate cluster counts. Walking the
// curve in its descending-criterion order yields ascending x directly.
func Points(length int, bins binning.Binning) []Point {
	var points []Point
	previous := -1
	for _, bin := range bins {
		if bin.Level == 1 || bin.Level == previous {
			continue
		}
		points = append(points, Point{
			X: (1 - bin.Crit) * float64(length),
			Y: math.Log2(float64(bin.Level)),
		})
		previous = bin.Level
	}
	return points
}

// fitSegment greedily grows a window of points from start: the line is
// fitted over the first two points and the window extends while the next
// point stays within maxSegmentError of it. The returned end bound is
// exclusive; the first point exceeding the threshold starts the next
// segment.
func fitSegment(points []Point, start int) (end int, line Line, err error) {
	end = start + 2
	if end > len(points) {
		return 0, Line{}, fmt.Errorf("not enough points for a segment at %d", start)
	}
	line, err = NewLine(points[start:end])
	if err != nil {
		return 0, Line{}, err
	}
	for i := end; i < len(points); i++ {
		if line.SquaredError(points[i]) > maxSegmentError {
			break
		}
		end = i
	}
	line, err = NewLine(points[start:end])
	if err != nil {
		return 0, Line{}, err
	}
	return end, line, nil
}

// Estimate fits the two segments and extracts the seed parameter set:
// sigma and omega from the negated segment slopes, npop from the
// intersection of the two lines. Equal slopes are a domain error, not a
// silent infinity.
func Estimate(length int, bins binning.Binning) (sim.ParameterSet, error) {
	points := Points(length, bins)
	log.Debugf("fitting %d points", len(points))

	sigmaEnd, sigmaLine, err := fitSegment(points, 0)
	if err != nil {
		return sim.ParameterSet{}, err
	}
	_, omegaLine, err := fitSegment(points, sigmaEnd+1)
	if err != nil {
		return sim.ParameterSet{}, err
	}

	crossing, err := sigmaLine.Intersection(omegaLine)
	if err != nil {
		return sim.ParameterSet{}, err
	}

	p := sim.ParameterSet{
		Omega: -omegaLine.M,
		Sigma: -sigmaLine.M,
		Npop:  int(math.Round(math.Exp2(crossing.Y))),
	}
	log.Infof("initial estimate: %v", p)
	return p, nil
}
