// README: Walk simulator; fetches walking routes and replays a walker along the recommended one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"saferoute/internal/config"
	"saferoute/internal/geo"
	"saferoute/internal/infra"
	"saferoute/internal/maps"
	"saferoute/internal/modules/navigation"
	"saferoute/internal/modules/routes"
	"saferoute/internal/speech"
	"saferoute/internal/types"
)

func main() {
	from := flag.String("from", "", "origin as lat,lng")
	to := flag.String("to", "", "destination as lat,lng")
	stride := flag.Float64("stride", 15, "meters between simulated fixes")
	interval := flag.Duration("interval", 200*time.Millisecond, "delay between fixes")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := infra.NewLogger("development")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	origin, err := parseCoord(*from)
	if err != nil {
		logger.Fatal("invalid -from", zap.Error(err))
	}
	dest, err := parseCoord(*to)
	if err != nil {
		logger.Fatal("invalid -to", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := simulate(ctx, cfg, logger, origin, dest, *stride, *interval); err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}
}

func simulate(ctx context.Context, cfg config.Config, logger *zap.Logger, origin, dest types.Point, stride float64, interval time.Duration) error {
	client, err := maps.NewClient(cfg.Maps.APIKey)
	if err != nil {
		return err
	}
	svc := routes.NewService(maps.NewRouteService(client, cfg.Maps.Timeout), routes.NewMemoryStore(cfg.Routes.SelectionTTL), nil, logger)

	sel, err := svc.Search(ctx, origin, dest)
	if err != nil {
		return err
	}
	for _, c := range sel.Candidates {
		logger.Info("candidate",
			zap.Int("index", c.Index),
			zap.String("summary", c.Summary),
			zap.String("distance", c.Distance),
			zap.Float64("rating", c.Rating),
			zap.Bool("recommended", c.Index == sel.Recommended),
		)
	}
	plan, err := sel.Plan(sel.Recommended)
	if err != nil {
		return err
	}

	nav := cfg.Navigation
	manager := navigation.NewManager(navigation.ManagerConfig{
		Tracker: navigation.TrackerOptions{
			JitterMeters:        nav.JitterMeters,
			OnRouteMeters:       nav.OnRouteMeters,
			HeadingToleranceDeg: nav.HeadingToleranceDeg,
			WalkingSpeedMph:     nav.WalkingSpeedMph,
		},
		Voice:    navigation.DefaultVoiceOptions(),
		Speakers: speech.Speakers(nil, logger),
		OnUpdate: func(_ types.ID, st navigation.State) {
			logger.Info("update",
				zap.Int("step", st.CurrentStep),
				zap.String("status", string(st.Status)),
				zap.String("remaining", st.RemainingDistance),
				zap.String("eta", st.RemainingTime),
			)
		},
		Logger: logger,
	})
	defer manager.Close()

	started, err := manager.Start(ctx, navigation.StartParams{Plan: plan})
	if err != nil {
		return err
	}

	path := append([]types.Point{plan.Start}, started.Polyline...)
	fixes := walk(path, stride)
	logger.Info("walking", zap.Int("fixes", len(fixes)), zap.Float64("meters", geo.PathLength(path)))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for _, p := range fixes {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if _, err := manager.PushPosition(started.ID, "", p); err != nil {
			return err
		}
	}

	deadline := time.Now().Add(5 * interval)
	for {
		st, err := manager.Get(started.ID, "")
		if err != nil {
			return err
		}
		if st.Status == navigation.StatusArrived || time.Now().After(deadline) {
			logger.Info("finished", zap.String("status", string(st.Status)), zap.String("instruction", st.Instruction))
			return nil
		}
		time.Sleep(interval / 4)
	}
}

// walk samples path every stride meters, always ending on the last point.
func walk(path []types.Point, stride float64) []types.Point {
	var out []types.Point
	for i := 1; i < len(path); i++ {
		a, b := path[i-1], path[i]
		n := int(geo.Distance(a, b)/stride) + 1
		for k := 1; k <= n; k++ {
			out = append(out, geo.Interpolate(a, b, float64(k)/float64(n)))
		}
	}
	return out
}

func parseCoord(s string) (types.Point, error) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return types.Point{}, fmt.Errorf("want lat,lng, got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return types.Point{}, err
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return types.Point{}, err
	}
	p := types.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return types.Point{}, fmt.Errorf("out of range: %q", s)
	}
	return p, nil
}
