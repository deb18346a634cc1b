package availability

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/chairbook/services/booking-service/internal/model"
)

type fakeStore struct {
	mu        sync.Mutex
	rules     []model.WeeklyHourRule
	overrides []model.ScheduleOverride
	bookings  []model.Booking
	err       error
	calls     int
}

func (s *fakeStore) GetWeeklyRules(context.Context, string) ([]model.WeeklyHourRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.rules, s.err
}

func (s *fakeStore) GetOverrides(context.Context, string, string) ([]model.ScheduleOverride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.overrides, nil
}

func (s *fakeStore) GetBookings(context.Context, string, string) ([]model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.bookings, nil
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string][]string
	ttls    map[string]time.Duration
	deleted []string
	err     error
}

func newMapCache() *mapCache {
	return &mapCache{entries: map[string][]string{}, ttls: map[string]time.Duration{}}
}

func (c *mapCache) Get(_ context.Context, key Key) ([]string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, false, c.err
	}
	v, ok := c.entries[key.String()]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key Key, slots []string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.entries[key.String()] = slots
	c.ttls[key.String()] = ttl
	return nil
}

func (c *mapCache) InvalidateDay(_ context.Context, providerID, date string, durations []int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	for _, d := range durations {
		k := Key{ProviderID: providerID, Date: date, Duration: d}.String()
		delete(c.entries, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Fixed far from 2023-12-25 so the same-day filter never applies unless a test wants it.
func fixedNow() time.Time {
	return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
}

func scenarioStore() *fakeStore {
	return &fakeStore{rules: []model.WeeklyHourRule{
		{ProviderID: "barber1", Weekday: model.Monday, StartTime: "09:00", EndTime: "12:00"},
	}}
}

func newTestService(store Store, cache Cache) *Service {
	return NewService(store, cache, discardLogger(), Config{Now: fixedNow})
}

func TestGetAvailability_Scenarios(t *testing.T) {
	cases := []struct {
		name      string
		overrides []model.ScheduleOverride
		bookings  []model.Booking
		want      []string
	}{
		{name: "A weekly rule only", want: []string{"09:00", "10:00", "11:00"}},
		{
			name:     "B booked hour removed",
			bookings: []model.Booking{{StartTime: "10:00", EndTime: "11:00", Status: model.StatusBooked}},
			want:     []string{"09:00", "11:00"},
		},
		{
			name:     "C cancelled booking ignored",
			bookings: []model.Booking{{StartTime: "10:00", EndTime: "11:00", Status: model.StatusCancelled}},
			want:     []string{"09:00", "10:00", "11:00"},
		},
		{
			name:      "D override replaces weekly hours",
			overrides: []model.ScheduleOverride{{Date: "2023-12-25", StartTime: "10:00", EndTime: "11:00"}},
			want:      []string{"10:00"},
		},
		{
			name:      "E closed override",
			overrides: []model.ScheduleOverride{{Date: "2023-12-25", IsClosed: true}},
			want:      []string{},
		},
		{
			name: "mixed time formats",
			bookings: []model.Booking{
				{StartTime: "10:00", EndTime: "11:00", Status: model.StatusBooked},
				{StartTime: "11:00:00", EndTime: "12:00:00", Status: model.StatusBooked},
			},
			want: []string{"09:00"},
		},
		{
			name:     "legacy booking without end uses requested duration",
			bookings: []model.Booking{{StartTime: "09:00:00", Status: model.StatusBooked}},
			want:     []string{"10:00", "11:00"},
		},
		{
			name:     "corrupt booking does not abort the day",
			bookings: []model.Booking{{StartTime: "garbage", EndTime: "garbage", Status: model.StatusBooked}},
			want:     []string{"09:00", "10:00", "11:00"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := scenarioStore()
			store.overrides = tc.overrides
			store.bookings = tc.bookings

			res, err := newTestService(store, newMapCache()).GetAvailability(context.Background(), "barber1", "2023-12-25", 60)
			if err != nil {
				t.Fatalf("GetAvailability failed: %v", err)
			}
			if res.Cached {
				t.Fatal("first call must not be cached")
			}
			if !reflect.DeepEqual(res.Slots, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, res.Slots)
			}
		})
	}
}

func TestGetAvailability_ClosedDayIgnoresBookings(t *testing.T) {
	store := scenarioStore()
	store.overrides = []model.ScheduleOverride{{IsClosed: true}}
	store.bookings = []model.Booking{{StartTime: "09:00", EndTime: "10:00", Status: model.StatusBooked}}

	// 2023-12-26 is a Tuesday with no rule at all.
	for _, date := range []string{"2023-12-25", "2023-12-26"} {
		res, err := newTestService(store, nil).GetAvailability(context.Background(), "barber1", date, 30)
		if err != nil {
			t.Fatalf("GetAvailability(%s) failed: %v", date, err)
		}
		if res.Slots == nil || len(res.Slots) != 0 {
			t.Fatalf("expected empty slot list for %s, got %#v", date, res.Slots)
		}
	}
}

func TestGetAvailability_ScenarioF_CacheHit(t *testing.T) {
	store := scenarioStore()
	cache := newMapCache()
	svc := newTestService(store, cache)

	first, err := svc.GetAvailability(context.Background(), "barber1", "2023-12-25", 60)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	callsAfterMiss := store.calls
	if callsAfterMiss != 3 {
		t.Fatalf("expected three store reads on a miss, got %d", callsAfterMiss)
	}
	if ttl := cache.ttls["availability:barber1:60:2023-12-25"]; ttl != DefaultCacheTTL {
		t.Fatalf("expected default TTL, got %v", ttl)
	}

	// Data changes underneath are not revalidated while the entry lives.
	store.bookings = []model.Booking{{StartTime: "09:00", EndTime: "10:00", Status: model.StatusBooked}}

	second, err := svc.GetAvailability(context.Background(), "barber1", "2023-12-25", 60)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if !second.Cached {
		t.Fatal("expected cached result")
	}
	if !reflect.DeepEqual(first.Slots, second.Slots) {
		t.Fatalf("expected identical slots, got %v and %v", first.Slots, second.Slots)
	}
	if store.calls != callsAfterMiss {
		t.Fatalf("cache hit performed %d store reads", store.calls-callsAfterMiss)
	}

	if err := svc.Invalidate(context.Background(), "barber1", "2023-12-25"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	third, err := svc.GetAvailability(context.Background(), "barber1", "2023-12-25", 60)
	if err != nil {
		t.Fatalf("third call failed: %v", err)
	}
	if third.Cached || !reflect.DeepEqual(third.Slots, []string{"10:00", "11:00"}) {
		t.Fatalf("expected fresh result after invalidation, got %+v", third)
	}
}

func TestGetAvailability_CacheFailureFallsBack(t *testing.T) {
	store := scenarioStore()
	cache := newMapCache()
	cache.err = errors.New("redis: connection refused")

	res, err := newTestService(store, cache).GetAvailability(context.Background(), "barber1", "2023-12-25", 60)
	if err != nil {
		t.Fatalf("expected cache failure to be absorbed, got %v", err)
	}
	if res.Cached || len(res.Slots) != 3 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestGetAvailability_StoreErrorPropagates(t *testing.T) {
	store := scenarioStore()
	store.err = errors.New("db down")
	if _, err := newTestService(store, newMapCache()).GetAvailability(context.Background(), "barber1", "2023-12-25", 60); err == nil {
		t.Fatal("expected store error")
	}
}

func TestGetAvailability_InputValidation(t *testing.T) {
	svc := newTestService(scenarioStore(), nil)
	ctx := context.Background()

	for _, date := range []string{"25-12-2023", "2023/12/25", "2023-12-32", "", "2023-1-5"} {
		if _, err := svc.GetAvailability(ctx, "barber1", date, 60); !errors.Is(err, ErrInvalidDateFormat) {
			t.Fatalf("date %q: expected ErrInvalidDateFormat, got %v", date, err)
		}
	}
	for _, d := range []int{0, -30, 24*60 + 1} {
		if _, err := svc.GetAvailability(ctx, "barber1", "2023-12-25", d); !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("duration %d: expected ErrInvalidDuration, got %v", d, err)
		}
	}
	if _, err := svc.GetAvailability(ctx, "  ", "2023-12-25", 60); !errors.Is(err, ErrMissingProvider) {
		t.Fatalf("expected ErrMissingProvider, got %v", err)
	}
}

func TestGetAvailability_TodayDropsSlotsInsideBuffer(t *testing.T) {
	store := &fakeStore{rules: []model.WeeklyHourRule{{Weekday: model.Thursday, StartTime: "09:00", EndTime: "13:00"}}}
	// 2026-10-15 is a Thursday; now is 10:50, so the cutoff is 11:05.
	now := func() time.Time { return time.Date(2026, 10, 15, 10, 50, 0, 0, time.UTC) }
	svc := NewService(store, nil, discardLogger(), Config{Now: now})

	res, err := svc.GetAvailability(context.Background(), "p", "2026-10-15", 30)
	if err != nil {
		t.Fatalf("GetAvailability failed: %v", err)
	}
	want := []string{"11:30", "12:00", "12:30"}
	if !reflect.DeepEqual(res.Slots, want) {
		t.Fatalf("expected %v, got %v", want, res.Slots)
	}
}

func TestInvalidate_ClearsConfiguredDurations(t *testing.T) {
	cache := newMapCache()
	svc := NewService(scenarioStore(), cache, discardLogger(), Config{Now: fixedNow, InvalidationDurations: []int{20, 60}})

	if err := svc.Invalidate(context.Background(), "barber1", "2023-12-25"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	got := append([]string(nil), cache.deleted...)
	sort.Strings(got)
	want := []string{"availability:barber1:20:2023-12-25", "availability:barber1:60:2023-12-25"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if err := svc.Invalidate(context.Background(), "barber1", "Dec 25"); !errors.Is(err, ErrInvalidDateFormat) {
		t.Fatalf("expected ErrInvalidDateFormat, got %v", err)
	}
}

func TestGetAvailability_ConcurrentCallers(t *testing.T) {
	store := scenarioStore()
	svc := newTestService(store, newMapCache())

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.GetAvailability(context.Background(), "barber1", "2023-12-25", 60)
			if err != nil {
				errs <- err
				return
			}
			if len(res.Slots) != 3 {
				errs <- errors.New("unexpected slot count")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

// gatedStore blocks GetWeeklyRules until release is closed or the call's ctx ends.
type gatedStore struct {
	*fakeStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedStore) GetWeeklyRules(ctx context.Context, providerID string) ([]model.WeeklyHourRule, error) {
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.fakeStore.GetWeeklyRules(ctx, providerID)
}

func TestGetAvailability_SharedMissSurvivesFirstCallerCancel(t *testing.T) {
	store := &gatedStore{fakeStore: scenarioStore(), entered: make(chan struct{}), release: make(chan struct{})}
	cache := newMapCache()
	svc := newTestService(store, cache)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetAvailability(firstCtx, "barber1", "2023-12-25", 60)
		firstErr <- err
	}()
	<-store.entered

	type outcome struct {
		res Result
		err error
	}
	second := make(chan outcome, 1)
	go func() {
		res, err := svc.GetAvailability(context.Background(), "barber1", "2023-12-25", 60)
		second <- outcome{res, err}
	}()
	// Let the second caller join the in-flight computation.
	time.Sleep(50 * time.Millisecond)

	cancelFirst()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("first caller: expected context.Canceled, got %v", err)
	}
	close(store.release)

	got := <-second
	if got.err != nil {
		t.Fatalf("second caller failed: %v", got.err)
	}
	want := []string{"09:00", "10:00", "11:00"}
	if !reflect.DeepEqual(got.res.Slots, want) {
		t.Fatalf("expected %v, got %v", want, got.res.Slots)
	}
	if slots, ok, _ := cache.Get(context.Background(), Key{ProviderID: "barber1", Date: "2023-12-25", Duration: 60}); !ok || !reflect.DeepEqual(slots, want) {
		t.Fatalf("expected shared result to be cached, got %v (ok=%v)", slots, ok)
	}
}

func TestInvalidate_TrimsAndRequiresProvider(t *testing.T) {
	cache := newMapCache()
	svc := NewService(scenarioStore(), cache, discardLogger(), Config{Now: fixedNow, InvalidationDurations: []int{60}})

	if err := svc.Invalidate(context.Background(), "  barber1 ", "2023-12-25"); err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if len(cache.deleted) != 1 || cache.deleted[0] != "availability:barber1:60:2023-12-25" {
		t.Fatalf("expected trimmed key, got %v", cache.deleted)
	}

	if err := svc.Invalidate(context.Background(), " ", "2023-12-25"); !errors.Is(err, ErrMissingProvider) {
		t.Fatalf("expected ErrMissingProvider, got %v", err)
	}
	if err := NewService(scenarioStore(), nil, discardLogger(), Config{}).Invalidate(context.Background(), "", "2023-12-25"); !errors.Is(err, ErrMissingProvider) {
		t.Fatalf("expected ErrMissingProvider without a cache, got %v", err)
	}
}
