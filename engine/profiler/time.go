package profiler

import "sync"

// LayerTimeProfile is one operator's loading/computing timing, in
// milliseconds since a monotonic reference.
type LayerTimeProfile struct {
	LayerIndex        int
	LoadingBegin      float64
	LoadingEnd        float64
	LoadingDuration   float64
	ComputingBegin    float64
	ComputingEnd      float64
	ComputingDuration float64
}

// TimeProfiler records the four timing hooks the executor calls around
// every operator's load and compute phases.
type TimeProfiler interface {
	LayerLoadingBegin(layer int)
	LayerLoadingEnd(layer int)
	LayerComputingBegin(layer int)
	LayerComputingEnd(layer int)
	Insert(p LayerTimeProfile)
	Clear()
	Profiles() []LayerTimeProfile
}

// UnlockedTimeProfiler is used by the single-threaded shape-only dry run,
// where there is no concurrent access to guard against.
type UnlockedTimeProfiler struct {
	clock    func() float64
	profiles map[int]*LayerTimeProfile
}

func NewUnlockedTimeProfiler(clock func() float64) *UnlockedTimeProfiler {
	return &UnlockedTimeProfiler{clock: clock, profiles: map[int]*LayerTimeProfile{}}
}

func (t *UnlockedTimeProfiler) entry(layer int) *LayerTimeProfile {
	p, ok := t.profiles[layer]
	if !ok {
		p = &LayerTimeProfile{LayerIndex: layer}
		t.profiles[layer] = p
	}
	return p
}

func (t *UnlockedTimeProfiler) LayerLoadingBegin(layer int) { t.entry(layer).LoadingBegin = t.clock() }
func (t *UnlockedTimeProfiler) LayerLoadingEnd(layer int) {
	p := t.entry(layer)
	p.LoadingEnd = t.clock()
	p.LoadingDuration = p.LoadingEnd - p.LoadingBegin
}
func (t *UnlockedTimeProfiler) LayerComputingBegin(layer int) {
	t.entry(layer).ComputingBegin = t.clock()
}
func (t *UnlockedTimeProfiler) LayerComputingEnd(layer int) {
	p := t.entry(layer)
	p.ComputingEnd = t.clock()
	p.ComputingDuration = p.ComputingEnd - p.ComputingBegin
}
func (t *UnlockedTimeProfiler) Insert(p LayerTimeProfile) { cp := p; t.profiles[p.LayerIndex] = &cp }
func (t *UnlockedTimeProfiler) Clear()                    { t.profiles = map[int]*LayerTimeProfile{} }
func (t *UnlockedTimeProfiler) Profiles() []LayerTimeProfile {
	return sortedProfiles(t.profiles)
}

// LockedTimeProfiler guards the same bookkeeping with a mutex, for use from
// the executor's two concurrent worker goroutines (loader and computer both
// record timing for the same operator).
type LockedTimeProfiler struct {
	mu       sync.Mutex
	clock    func() float64
	profiles map[int]*LayerTimeProfile
}

func NewLockedTimeProfiler(clock func() float64) *LockedTimeProfiler {
	return &LockedTimeProfiler{clock: clock, profiles: map[int]*LayerTimeProfile{}}
}

func (t *LockedTimeProfiler) entry(layer int) *LayerTimeProfile {
	p, ok := t.profiles[layer]
	if !ok {
		p = &LayerTimeProfile{LayerIndex: layer}
		t.profiles[layer] = p
	}
	return p
}

func (t *LockedTimeProfiler) LayerLoadingBegin(layer int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(layer).LoadingBegin = t.clock()
}
func (t *LockedTimeProfiler) LayerLoadingEnd(layer int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.entry(layer)
	p.LoadingEnd = t.clock()
	p.LoadingDuration = p.LoadingEnd - p.LoadingBegin
}
func (t *LockedTimeProfiler) LayerComputingBegin(layer int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entry(layer).ComputingBegin = t.clock()
}
func (t *LockedTimeProfiler) LayerComputingEnd(layer int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.entry(layer)
	p.ComputingEnd = t.clock()
	p.ComputingDuration = p.ComputingEnd - p.ComputingBegin
}
func (t *LockedTimeProfiler) Insert(p LayerTimeProfile) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cp := p
	t.profiles[p.LayerIndex] = &cp
}
func (t *LockedTimeProfiler) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.profiles = map[int]*LayerTimeProfile{}
}
func (t *LockedTimeProfiler) Profiles() []LayerTimeProfile {
	t.mu.Lock()
	defer t.mu.Unlock()
	return sortedProfiles(t.profiles)
}

func sortedProfiles(m map[int]*LayerTimeProfile) []LayerTimeProfile {
	out := make([]LayerTimeProfile, 0, len(m))
	for _, p := range m {
		out = append(out, *p)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].LayerIndex > out[j].LayerIndex; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
