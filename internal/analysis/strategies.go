package analysis

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/nvandessel/enstat/internal/errkind"
	"github.com/nvandessel/enstat/internal/field"
	"github.com/nvandessel/enstat/internal/parallel"
	"github.com/nvandessel/enstat/internal/stats"
)

func analyzeSingle(cols *columns, name string, opts Options, sum *Summary) ([]*field.Field, error) {
	volume := cols.layout.Volume()
	mean := cols.output(1, name+"_mean")
	dev := cols.output(1, name+"_deviation")
	meanData, _ := mean.Data()
	devData, _ := dev.Data()

	sum.Workers = parallel.Workers(volume, opts.Workers)
	err := parallel.For(volume, opts.Workers, func(c parallel.Chunk) error {
		buf := make([]float64, len(cols.data))
		for i := c.Lo; i < c.Hi; i++ {
			cols.gather(i, buf)
			m := stats.Mean(buf)
			meanData[i] = m
			devData[i] = math.Sqrt(stats.Variance(buf, m))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return []*field.Field{mean, dev}, nil
}

func analyzeMixture(cols *columns, name string, opts Options, sum *Summary) ([]*field.Field, error) {
	k := opts.MaxComponents
	if k < 1 {
		return nil, fmt.Errorf("max components %d: %w", k, errkind.InvalidArgument)
	}
	volume := cols.layout.Volume()
	mean := cols.output(k, name+"_mean")
	dev := cols.output(k, name+"_deviation")
	weight := cols.output(k, name+"_weight")
	meanData, _ := mean.Data()
	devData, _ := dev.Data()
	weightData, _ := weight.Data()

	seed := opts.Seed
	if opts.Fit.RandomInit && seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	workers := parallel.Workers(volume, opts.Workers)
	counts := make([][]int, workers)
	iterations := make([]int, workers)
	sum.Workers = workers

	err := parallel.For(volume, workers, func(c parallel.Chunk) error {
		buf := make([]float64, len(cols.data))
		hist := make([]int, k+1)
		fit := opts.Fit
		var pcg *rand.PCG
		if fit.RandomInit {
			// Each voxel gets its own stream so the outcome does not depend
			// on how voxels are spread across workers.
			pcg = rand.NewPCG(seed, 0)
			fit.Rand = rand.New(pcg)
		} else {
			fit.Rand = nil
		}

		for i := c.Lo; i < c.Hi; i++ {
			cols.gather(i, buf)
			if pcg != nil {
				pcg.Seed(seed, uint64(i))
			}
			res, err := stats.FitGMM(buf, k, fit)
			if err != nil {
				return fmt.Errorf("voxel %d: %w", i, err)
			}
			for j, comp := range res.Components {
				meanData[i*k+j] = comp.Mean
				devData[i*k+j] = comp.Deviation()
				weightData[i*k+j] = comp.Weight
			}
			hist[res.K]++
			iterations[c.Worker] += res.Iterations
		}
		counts[c.Worker] = hist
		return nil
	})
	if err != nil {
		return nil, err
	}

	sum.ComponentCounts = make([]int, k+1)
	for _, hist := range counts {
		for j, n := range hist {
			sum.ComponentCounts[j] += n
		}
	}
	for _, n := range iterations {
		sum.Iterations += n
	}
	return []*field.Field{mean, dev, weight}, nil
}
