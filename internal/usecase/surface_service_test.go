package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/hszk-dev/loopvideo/internal/domain/model"
	"github.com/hszk-dev/loopvideo/internal/player"
)

func TestSurfaceService(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, &mockResolver{}, &mockEngine{})
	svc := NewSurfaceService(c, nil, nil)
	t.Cleanup(svc.Close)

	id := svc.Create(player.GravityResizeAspectFill)
	if err := svc.Attach(ctx, id, "intro", true); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	infos := svc.List()
	if len(infos) != 1 {
		t.Fatalf("List() returned %d surfaces, want 1", len(infos))
	}
	if infos[0].ID != id || infos[0].Key != "intro" || !infos[0].Playing || !infos[0].Showing {
		t.Errorf("unexpected surface info: %+v", infos[0])
	}

	// An attached surface protects its player from soft eviction.
	if evicted := c.SoftEvict(); len(evicted) != 0 {
		t.Errorf("SoftEvict() = %v, want none", evicted)
	}

	if err := svc.Detach(id); err != nil {
		t.Fatalf("Detach() error = %v", err)
	}
	if infos := svc.List(); infos[0].Showing || infos[0].Key != "" {
		t.Errorf("unexpected surface info after detach: %+v", infos[0])
	}

	if err := svc.Remove(id); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if evicted := c.SoftEvict(); len(evicted) != 1 || evicted[0] != model.VideoKey("intro") {
		t.Errorf("SoftEvict() = %v, want [intro]", evicted)
	}
}

func TestSurfaceService_UnknownSurface(t *testing.T) {
	c := newTestCache(t, &mockResolver{}, &mockEngine{})
	svc := NewSurfaceService(c, nil, nil)
	id := uuid.New()

	if err := svc.Attach(context.Background(), id, "intro", false); !errors.Is(err, ErrSurfaceNotFound) {
		t.Errorf("Attach() error = %v, want %v", err, ErrSurfaceNotFound)
	}
	if err := svc.Detach(id); !errors.Is(err, ErrSurfaceNotFound) {
		t.Errorf("Detach() error = %v, want %v", err, ErrSurfaceNotFound)
	}
	if err := svc.Remove(id); !errors.Is(err, ErrSurfaceNotFound) {
		t.Errorf("Remove() error = %v, want %v", err, ErrSurfaceNotFound)
	}
}
