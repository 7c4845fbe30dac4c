package brand

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	count int
	err   error

	gotCity  string
	gotBrand string
	calls    int
}

func (s *stubCounter) CountApprovedActive(_ context.Context, city, brand string) (int, error) {
	s.calls++
	s.gotCity, s.gotBrand = city, brand
	return s.count, s.err
}

func TestResolveCity(t *testing.T) {
	assert.Equal(t, "Pune", ResolveCity("Pune", "Baner", "12 MG Road"))
	assert.Equal(t, "Baner", ResolveCity("", "Baner", "12 MG Road"))
	assert.Equal(t, "12 MG Road", ResolveCity("", "", "12 MG Road"))
	assert.Equal(t, "Pune", ResolveCity("  Pune  ", "", ""))
	assert.Equal(t, "", ResolveCity(" ", " ", " "))
}

func TestGuard_UnderLimitPasses(t *testing.T) {
	counter := &stubCounter{count: 1}
	guard := NewGuard(counter)

	require.NoError(t, guard.Check(context.Background(), "Pune", "Aluplast"))
	assert.Equal(t, "Pune", counter.gotCity)
	assert.Equal(t, "Aluplast", counter.gotBrand)
}

func TestGuard_AtLimitRejects(t *testing.T) {
	guard := NewGuard(&stubCounter{count: 2})

	err := guard.Check(context.Background(), "Pune", "Aluplast")
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestGuard_OverLimitRejects(t *testing.T) {
	guard := NewGuard(&stubCounter{count: 5})

	err := guard.Check(context.Background(), "Pune", "Aluplast")
	assert.ErrorIs(t, err, ErrLimitReached)
}

func TestGuard_SkipsWhenBrandMissing(t *testing.T) {
	counter := &stubCounter{count: 10}
	guard := NewGuard(counter)

	require.NoError(t, guard.Check(context.Background(), "Pune", ""))
	assert.Zero(t, counter.calls)
}

func TestGuard_SkipsWhenCityMissing(t *testing.T) {
	counter := &stubCounter{count: 10}
	guard := NewGuard(counter)

	require.NoError(t, guard.Check(context.Background(), "  ", "Aluplast"))
	assert.Zero(t, counter.calls)
}

func TestGuard_PropagatesCounterError(t *testing.T) {
	want := errors.New("db down")
	guard := NewGuard(&stubCounter{err: want})

	err := guard.Check(context.Background(), "Pune", "Aluplast")
	assert.ErrorIs(t, err, want)
}
