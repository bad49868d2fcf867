package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeChecker struct {
	existing map[string]bool
	err      error
	calls    int
}

func (f *fakeChecker) ExistsBySourceURL(_ context.Context, sourceURL string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.existing[sourceURL], nil
}

type fakeClaimer struct {
	claimed  map[string]bool
	err      error
	released []string
}

func (f *fakeClaimer) Claim(_ context.Context, sourceURL string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.claimed[sourceURL] {
		return false, nil
	}
	f.claimed[sourceURL] = true
	return true, nil
}

func (f *fakeClaimer) Release(_ context.Context, sourceURL string) error {
	f.released = append(f.released, sourceURL)
	delete(f.claimed, sourceURL)
	return f.err
}

func TestGateExists(t *testing.T) {
	t.Parallel()

	store := &fakeChecker{existing: map[string]bool{"https://site.ao/vagas/1": true}}
	g := NewGate(store, nil)

	assert.True(t, g.Exists(context.Background(), "https://site.ao/vagas/1"))
	assert.False(t, g.Exists(context.Background(), "https://site.ao/vagas/2"))
}

func TestGateEmptyURLBypassesStore(t *testing.T) {
	t.Parallel()

	store := &fakeChecker{}
	g := NewGate(store, nil)

	assert.False(t, g.Exists(context.Background(), ""))
	assert.Zero(t, store.calls)
}

func TestGateFailsOpen(t *testing.T) {
	t.Parallel()

	g := NewGate(&fakeChecker{err: errors.New("503 upstream")}, nil)
	assert.False(t, g.Exists(context.Background(), "https://site.ao/vagas/1"))
}

func TestGateWithClaimer(t *testing.T) {
	t.Parallel()

	claimer := &fakeClaimer{claimed: map[string]bool{}}
	g := NewGate(&fakeChecker{}, nil, WithClaimer(claimer))
	ctx := context.Background()

	assert.False(t, g.Exists(ctx, "https://site.ao/vagas/7"), "first claim wins")
	assert.True(t, g.Exists(ctx, "https://site.ao/vagas/7"), "second claim is a duplicate")

	g.Release(ctx, "https://site.ao/vagas/7")
	assert.Equal(t, []string{"https://site.ao/vagas/7"}, claimer.released)
	assert.False(t, g.Exists(ctx, "https://site.ao/vagas/7"), "released URL can be claimed again")
}

func TestGateClaimerFailureFailsOpen(t *testing.T) {
	t.Parallel()

	claimer := &fakeClaimer{claimed: map[string]bool{}, err: errors.New("redis down")}
	g := NewGate(&fakeChecker{}, nil, WithClaimer(claimer))

	assert.False(t, g.Exists(context.Background(), "https://site.ao/vagas/8"))
	g.Release(context.Background(), "https://site.ao/vagas/8")
}

func TestGateReleaseWithoutClaimer(t *testing.T) {
	t.Parallel()

	NewGate(&fakeChecker{}, nil).Release(context.Background(), "https://site.ao/x")
}
