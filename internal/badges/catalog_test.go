package badges_test

import (
	"context"
	"errors"
	"testing"

	"github.com/neststoplabs/mbtbridge/internal/backend"
	"github.com/neststoplabs/mbtbridge/internal/badges"
)

type fakeLister struct {
	badges []backend.Badge
	err    error
	calls  int
}

func (f *fakeLister) ListBadges(ctx context.Context) ([]backend.Badge, error) {
	f.calls++
	return f.badges, f.err
}

func TestRefreshDropsEmptyNames(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{badges: []backend.Badge{
		{BadgeName: "Early Adopter"},
		{BadgeName: ""},
		{BadgeName: "Route Master"},
	}}
	catalog := badges.NewCatalog(nil, lister, "")
	if err := catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() = %v", err)
	}

	got := catalog.Choices(context.Background(), "", 25)
	if len(got) != 2 {
		t.Fatalf("Choices() = %v, want 2 names", got)
	}
}

func TestChoicesFiltersCaseInsensitively(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{badges: []backend.Badge{
		{BadgeName: "Early Adopter"},
		{BadgeName: "Route Master"},
		{BadgeName: "Night Rider"},
	}}
	catalog := badges.NewCatalog(nil, lister, "")
	if err := catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() = %v", err)
	}

	got := catalog.Choices(context.Background(), "ROUTE", 25)
	if len(got) != 1 || got[0] != "Route Master" {
		t.Fatalf("Choices(ROUTE) = %v, want [Route Master]", got)
	}
}

func TestChoicesCapsAtLimit(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{badges: []backend.Badge{
		{BadgeName: "a"}, {BadgeName: "b"}, {BadgeName: "c"},
	}}
	catalog := badges.NewCatalog(nil, lister, "")
	if err := catalog.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() = %v", err)
	}

	got := catalog.Choices(context.Background(), "", 2)
	if len(got) != 2 {
		t.Fatalf("Choices() = %v, want 2 names", got)
	}
}

func TestChoicesLazilyRefreshesEmptyCache(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{badges: []backend.Badge{{BadgeName: "Early Adopter"}}}
	catalog := badges.NewCatalog(nil, lister, "")

	got := catalog.Choices(context.Background(), "", 25)
	if lister.calls != 1 {
		t.Fatalf("lister calls = %d, want 1", lister.calls)
	}
	if len(got) != 1 {
		t.Fatalf("Choices() = %v, want 1 name", got)
	}
}

func TestChoicesSurvivesFailedLazyRefresh(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{err: errors.New("site down")}
	catalog := badges.NewCatalog(nil, lister, "")

	got := catalog.Choices(context.Background(), "x", 25)
	if len(got) != 0 {
		t.Fatalf("Choices() = %v, want none", got)
	}
}

func TestStartRejectsBadCronSpec(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{}
	catalog := badges.NewCatalog(nil, lister, "not a cron spec")
	defer catalog.Stop()
	if err := catalog.Start(context.Background()); err == nil {
		t.Fatal("Start() with invalid cron spec must fail")
	}
}
