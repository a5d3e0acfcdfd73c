package stabilize

import (
	"math"

	"github.com/solvekit/matchmove/track"
)

// AnalyzeFrameMotion estimates the rigid 2D motion between prevFrame and
// frame from the tracks that have OK points on both. Translation is the
// centroid shift in pixels, scale the ratio of RMS centroid-relative
// radii, rotation the closed-form Procrustes estimate
// atan2(sum(cross), sum(dot)) over centroid-centered point pairs.
// Returns the identity when fewer than 2 usable pairs exist.
func AnalyzeFrameMotion(tracks []*track.Track, frame, prevFrame, width, height int) Transform2D {
	var prevPts, currPts []track.Point
	for _, t := range tracks {
		if !t.Enabled() {
			continue
		}
		pp, okPrev := t.PointAt(prevFrame)
		cp, okCurr := t.PointAt(frame)
		if !okPrev || !okCurr || pp.Status != track.StatusOK || cp.Status != track.StatusOK {
			continue
		}
		prevPts = append(prevPts, pp.Pos)
		currPts = append(currPts, cp.Pos)
	}
	if len(prevPts) < 2 {
		return Identity()
	}

	prevC := centroid(prevPts)
	currC := centroid(currPts)

	// Scale from RMS radii about the centroids
	prevRMS := rmsRadius(prevPts, prevC)
	currRMS := rmsRadius(currPts, currC)
	scale := 1.0
	if prevRMS > 1e-12 {
		scale = currRMS / prevRMS
	}

	// Procrustes rotation over centered pairs
	var num, den float64
	for i := range prevPts {
		xp := prevPts[i].X - prevC.X
		yp := prevPts[i].Y - prevC.Y
		xc := currPts[i].X - currC.X
		yc := currPts[i].Y - currC.Y
		num += xp*yc - yp*xc
		den += xp*xc + yp*yc
	}
	rotation := 0.0
	if num != 0 || den != 0 {
		rotation = math.Atan2(num, den)
	}

	return Transform2D{
		Tx:       (currC.X - prevC.X) * float64(width),
		Ty:       (currC.Y - prevC.Y) * float64(height),
		Rotation: rotation,
		Scale:    scale,
		Center:   prevC,
	}
}

// AnalyzeGlobalMotion composes per-frame motions into cumulative
// transforms relative to the anchor frame: forward of the anchor by
// functional composition, behind it by inverse-then-compose, which avoids
// biasing drift toward either end of the sequence.
func AnalyzeGlobalMotion(tracks []*track.Track, frameStart, frameEnd, anchor, width, height int) map[int]Transform2D {
	out := make(map[int]Transform2D, frameEnd-frameStart+1)
	out[anchor] = Identity()

	cum := Identity()
	for f := anchor + 1; f <= frameEnd; f++ {
		cum = cum.Compose(AnalyzeFrameMotion(tracks, f, f-1, width, height))
		out[f] = cum
	}
	cum = Identity()
	for f := anchor - 1; f >= frameStart; f-- {
		cum = cum.Compose(AnalyzeFrameMotion(tracks, f+1, f, width, height).Inverse())
		out[f] = cum
	}
	return out
}

func centroid(pts []track.Point) track.Point {
	var c track.Point
	for _, p := range pts {
		c.X += p.X
		c.Y += p.Y
	}
	c.X /= float64(len(pts))
	c.Y /= float64(len(pts))
	return c
}

func rmsRadius(pts []track.Point, c track.Point) float64 {
	sum := 0.0
	for _, p := range pts {
		dx := p.X - c.X
		dy := p.Y - c.Y
		sum += dx*dx + dy*dy
	}
	return math.Sqrt(sum / float64(len(pts)))
}
