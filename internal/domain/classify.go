package domain

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// minChunk keeps tiny inputs from being split across goroutines.
const minChunk = 256

// Classify assigns every detection a grid cell and, when regions is
// non-nil, at most one region. Output order matches input order. Work is
// split into contiguous chunks across up to workers goroutines; each
// goroutine writes only its own range. The only error is context
// cancellation.
func Classify(ctx context.Context, detections []Detection, regions *RegionSet, workers int) ([]ClassifiedDetection, error) {
	out := make([]ClassifiedDetection, len(detections))
	if len(detections) == 0 {
		return out, nil
	}
	if workers < 1 {
		workers = 1
	}

	chunk := (len(detections) + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(detections); start += chunk {
		end := min(start+chunk, len(detections))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%minChunk == 0 {
					if err := ctx.Err(); err != nil {
						return err
					}
				}
				out[i] = classifyOne(detections[i], regions)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func classifyOne(d Detection, regions *RegionSet) ClassifiedDetection {
	c := ClassifiedDetection{
		Detection: d,
		Cell:      CellFor(d.Lat, d.Lon),
	}
	if name, ok := regions.Locate(d.Lat, d.Lon); ok {
		c.Region = name
	}
	return c
}
