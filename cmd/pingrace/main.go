// pingrace fires concurrent dispatches at one freshly seeded place and
// prints the outcome histogram. Exactly one "ok" is expected per run.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sdnyco/ichi/config"
	"github.com/sdnyco/ichi/internal/dayclock"
	"github.com/sdnyco/ichi/internal/model"
	"github.com/sdnyco/ichi/internal/notify"
	"github.com/sdnyco/ichi/internal/service"
	"github.com/sdnyco/ichi/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func check(err error) {
	if err != nil {
		panic(err)
	}
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func main() {
	cfg := must(config.Load(os.Getenv("ICHI_CONFIG")))
	db := must(database.InitDB(cfg))
	defer database.Close(db)
	check(database.Migrate(db, true))

	N := envInt("N", 50)
	RECIPIENTS := envInt("RECIPIENTS", 5)

	// seed: one place, one sender with an active check-in, RECIPIENTS anchored profiles
	now := time.Now().UTC()
	run := uuid.NewString()[:8]
	place := model.Place{ID: uuid.NewString(), Name: "race " + run, Slug: "race-" + run}
	sender := model.User{ID: uuid.NewString(), Username: "sender-" + run, Email: "sender-" + run + "@example.com"}
	checkIn := model.CheckIn{ID: uuid.NewString(), UserID: sender.ID, PlaceID: place.ID, Mood: "bench", StartedAt: now, ExpiresAt: now.Add(time.Hour)}
	check(db.Create(&place).Error)
	check(db.Create(&sender).Error)
	check(db.Create(&checkIn).Error)
	for i := 0; i < RECIPIENTS; i++ {
		u := model.User{ID: uuid.NewString(), Username: fmt.Sprintf("r%d-%s", i, run), Email: fmt.Sprintf("r%d-%s@example.com", i, run)}
		check(db.Create(&u).Error)
		p := model.PlaceProfile{
			ID: uuid.NewString(), UserID: u.ID, PlaceID: place.ID, IsAnchored: true, ContactEmail: u.Email,
			AvailabilityWeekly: datatypes.NewJSONType(model.WeeklyAvailability(nil)),
		}
		check(db.Create(&p).Error)
	}

	clock := must(dayclock.New(cfg.Ping.ReferenceTimeZone))
	d := service.NewDispatcher(db, clock, notify.LogTransport{}, service.DispatchOptions{
		MaxRecipients: cfg.EffectiveMaxRecipients(),
		PublicBaseURL: cfg.App.PublicBaseURL,
	})

	ctx := context.Background()
	lat := make([]time.Duration, N)
	res := make([]service.Result, N)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < N; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			st := time.Now()
			res[i] = d.Dispatch(ctx, sender.ID, place.ID, checkIn.ID)
			lat[i] = time.Since(st)
		}(i)
	}
	t0 := time.Now()
	close(start)
	wg.Wait()
	total := time.Since(t0)

	hist := map[service.Reason]int{}
	for _, r := range res {
		if r.OK {
			hist[service.ReasonOK]++
			continue
		}
		hist[r.Reason]++
	}

	var events, recipients int64
	db.Model(&model.PingEvent{}).Where("place_id = ?", place.ID).Count(&events)
	db.Model(&model.PingRecipient{}).
		Joins("JOIN ping_events ON ping_events.id = ping_recipients.ping_event_id").
		Where("ping_events.place_id = ?", place.ID).
		Count(&recipients)

	pct := func(vs []time.Duration, p float64) time.Duration {
		if len(vs) == 0 {
			return 0
		}
		xs := append([]time.Duration(nil), vs...)
		sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
		k := int(math.Ceil(p*float64(len(xs)))) - 1
		if k < 0 {
			k = 0
		}
		return xs[k]
	}

	fmt.Printf("N=%d, RECIPIENTS=%d, place=%s\n", N, RECIPIENTS, place.ID)
	fmt.Printf("total: %v, p50: %v, p95: %v, p99: %v\n", total, pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
	reasons := make([]string, 0, len(hist))
	for r := range hist {
		reasons = append(reasons, string(r))
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fmt.Printf("  %-16s %d\n", r, hist[service.Reason(r)])
	}
	fmt.Printf("ping_events=%d ping_recipients=%d\n", events, recipients)
	if hist[service.ReasonOK] > 1 || events > 1 {
		fmt.Println("FAIL: more than one send committed")
		os.Exit(1)
	}
}
