package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/samirrijal/roadcap/internal/core/domain"
	"github.com/samirrijal/roadcap/internal/core/usecases"
)

func TestCapacityService_WorstSegmentWins(t *testing.T) {
	repo := &mockRoadRepo{
		intersectFn: func(ctx context.Context, path []domain.GeoPoint) ([]domain.RoadSegment, error) {
			return []domain.RoadSegment{
				{ID: "a", CurrentLoad: 10, Capacity: 100},
				{ID: "b", CurrentLoad: 60, Capacity: 100},
				{ID: "c", CurrentLoad: 30, Capacity: 100},
			}, nil
		},
	}
	svc := usecases.NewCapacityService(repo, nil, 0)

	load, err := svc.PathLoad(context.Background(), line(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if load.CurrentLoad != 60 || load.Capacity != 100 {
		t.Errorf("expected 60/100, got %d/%d", load.CurrentLoad, load.Capacity)
	}
	if load.Status() != domain.StatusLimited {
		t.Errorf("expected limited, got %s", load.Status())
	}
}

func TestCapacityService_NoSegmentsIsNoData(t *testing.T) {
	svc := usecases.NewCapacityService(&mockRoadRepo{}, nil, 0)

	_, err := svc.PathLoad(context.Background(), line(3))
	if !errors.Is(err, domain.ErrNoCapacityData) {
		t.Fatalf("expected ErrNoCapacityData, got %v", err)
	}

	_, err = svc.PathLoad(context.Background(), line(1))
	if !errors.Is(err, domain.ErrNoCapacityData) {
		t.Fatalf("expected ErrNoCapacityData for a single point, got %v", err)
	}
}

func TestCapacityService_RepoErrorIsWrapped(t *testing.T) {
	boom := errors.New("db down")
	svc := usecases.NewCapacityService(&mockRoadRepo{
		intersectFn: func(ctx context.Context, path []domain.GeoPoint) ([]domain.RoadSegment, error) {
			return nil, boom
		},
	}, nil, 0)

	if _, err := svc.PathLoad(context.Background(), line(3)); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped repo error, got %v", err)
	}
}

func TestCapacityService_UsesCache(t *testing.T) {
	repo := &mockRoadRepo{
		intersectFn: func(ctx context.Context, path []domain.GeoPoint) ([]domain.RoadSegment, error) {
			return []domain.RoadSegment{{ID: "a", CurrentLoad: 8, Capacity: 10}}, nil
		},
	}
	svc := usecases.NewCapacityService(repo, newMockCache(), 60)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		load, err := svc.PathLoad(ctx, line(4))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if load.Status() != domain.StatusFull {
			t.Errorf("expected full, got %s", load.Status())
		}
	}
	if repo.calls != 1 {
		t.Errorf("expected 1 repo call, got %d", repo.calls)
	}
}

func TestWorstLoad_ZeroCapacityIsSaturated(t *testing.T) {
	load, ok := usecases.WorstLoad([]domain.RoadSegment{
		{ID: "a", CurrentLoad: 9, Capacity: 10},
		{ID: "b", CurrentLoad: 0, Capacity: 0},
	})
	if !ok {
		t.Fatal("expected a load")
	}
	if load.Capacity != 0 || load.Status() != domain.StatusFull {
		t.Errorf("expected the zero-capacity segment, got %+v", load)
	}

	if _, ok := usecases.WorstLoad(nil); ok {
		t.Error("expected no load for no segments")
	}
}
