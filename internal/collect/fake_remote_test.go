package collect

import (
	"context"
	"sync"
	"time"

	"backend-stizi/internal/shared/geo"
)

type fakeRemote struct {
	mu          sync.Mutex
	collectFn   func(ctx context.Context, code string) (Stamp, error)
	nearbyResps [][]Stamp
	nearbyErr   error
	mine        []Stamp
	mineErr     error
	createFn    func(ctx context.Context, in NewStamp) (Stamp, error)

	collectCalls int
	nearbyCalls  int
}

func (f *fakeRemote) Collect(ctx context.Context, code string) (Stamp, error) {
	f.mu.Lock()
	f.collectCalls++
	fn := f.collectFn
	f.mu.Unlock()
	if fn == nil {
		return Stamp{}, &RemoteError{Kind: KindServer}
	}
	return fn(ctx, code)
}

func (f *fakeRemote) Nearby(_ context.Context, _, _, _ float64) ([]Stamp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nearbyCalls++
	if f.nearbyErr != nil {
		return nil, f.nearbyErr
	}
	if len(f.nearbyResps) == 0 {
		return nil, nil
	}
	resp := f.nearbyResps[0]
	f.nearbyResps = f.nearbyResps[1:]
	return resp, nil
}

func (f *fakeRemote) Mine(_ context.Context) ([]Stamp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mine, f.mineErr
}

func (f *fakeRemote) CreateStamp(ctx context.Context, in NewStamp) (Stamp, error) {
	f.mu.Lock()
	fn := f.createFn
	f.mu.Unlock()
	if fn == nil {
		return Stamp{}, &RemoteError{Kind: KindServer}
	}
	return fn(ctx, in)
}

func (f *fakeRemote) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.collectCalls
}

func testStamp(id, code string, c geo.Coordinate, collectedBy ...string) Stamp {
	return Stamp{
		ID:          id,
		Name:        "Stamp " + id,
		Location:    geo.NewPoint(c),
		QRCode:      code,
		CreatedBy:   "creator",
		CollectedBy: collectedBy,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
