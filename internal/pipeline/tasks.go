package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/chrissnell/tripcharts/internal/metrics"
	"github.com/chrissnell/tripcharts/internal/tripstats"
	"github.com/chrissnell/tripcharts/internal/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Task is one named stage of a load run
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// run carries the state handed from one stage to the next
type run struct {
	rt         *Runtime
	id         string
	logger     *zap.SugaredLogger
	trips      []types.TripRecord
	aggregates *types.Aggregates
}

func newRun(rt *Runtime) *run {
	id := uuid.New().String()
	return &run{rt: rt, id: id, logger: rt.Logger.With("run_id", id)}
}

// execute runs tasks in order and stops at the first error, which is returned
// wrapped with the stage name.
func (r *run) execute(ctx context.Context, tasks []Task) error {
	start := time.Now()
	r.logger.Infof("load started (%d stages)", len(tasks))

	for _, t := range tasks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", t.Name, err)
		}

		stageStart := time.Now()
		err := t.Run(ctx)
		metrics.StageDuration.WithLabelValues(t.Name).Observe(time.Since(stageStart).Seconds())
		if err != nil {
			r.logger.Errorf("stage %s failed: %v", t.Name, err)
			return fmt.Errorf("%s: %w", t.Name, err)
		}
		r.logger.Debugf("stage %s finished in %v", t.Name, time.Since(stageStart))
	}

	r.logger.Infof("load finished in %v", time.Since(start))
	return nil
}

func (r *run) clear(context.Context) error {
	r.rt.Board.ClearAll()
	return nil
}

func (r *run) query(ctx context.Context) error {
	trips, err := r.rt.Executor.Trips(ctx, r.rt.Limit)
	if err != nil {
		return err
	}
	r.trips = trips
	metrics.QueryRows.Set(float64(len(trips)))
	return nil
}

func (r *run) shape(context.Context) error {
	r.aggregates = &types.Aggregates{
		RunID:       r.id,
		GeneratedAt: time.Now(),
		Rows:        len(r.trips),
		DayTypes:    tripstats.CountByDayType(r.trips),
		HourlyTips:  tripstats.AverageTipByHour(r.trips),
	}
	return nil
}

func (r *run) scatter(context.Context) error {
	return r.rt.Renderer.TripTip(r.trips)
}

func (r *run) bar(context.Context) error {
	return r.rt.Renderer.DayTypes(r.aggregates.DayTypes)
}

func (r *run) line(context.Context) error {
	return r.rt.Renderer.HourlyTips(r.aggregates.HourlyTips)
}
