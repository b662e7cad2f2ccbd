// Package workspace 实现课程工作区编排：合并刷新请求、维护会话状态与活动章节
package workspace

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"eduflow-api/pkg/metrics"
)

// FetchMode 拉取方式
type FetchMode string

const (
	// FetchExplicit 显式加载，调用方等待结果
	FetchExplicit FetchMode = "explicit"
	// FetchSilent 写操作后的静默刷新
	FetchSilent FetchMode = "silent"
)

// FetchFunc 实际的网络调用
type FetchFunc[T any] func(ctx context.Context) (T, error)

// ResultFunc 接收最新一次调用的结果，被取代的调用结果不会送达
type ResultFunc[T any] func(v T, err error, mode FetchMode)

// CoalescerOptions 合并参数
type CoalescerOptions struct {
	// Debounce 静默触发的防抖时间
	Debounce time.Duration
	// MinInterval 两次网络调用的最小间隔
	MinInterval time.Duration
}

// Coalescer 合并拉取器
//
// 同一时刻最多一个调用在途；新的显式调用会取消在途调用；
// 静默触发先防抖再限速，在途期间的触发合并为结束后的一次调用；
// 每次调用带递增的代号，只有最新代号的结果会被送达。
type Coalescer[T any] struct {
	fetch    FetchFunc[T]
	onResult ResultFunc[T]
	debounce time.Duration
	limiter  *rate.Limiter
	base     context.Context

	mu       sync.Mutex
	timer    *time.Timer
	cancel   context.CancelFunc
	gen      uint64
	inFlight bool
	pending  bool
	closed   bool
}

// NewCoalescer 创建合并拉取器，base 为静默调用的父 context
func NewCoalescer[T any](base context.Context, fetch FetchFunc[T], onResult ResultFunc[T], opts CoalescerOptions) *Coalescer[T] {
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}
	return &Coalescer[T]{
		fetch:    fetch,
		onResult: onResult,
		debounce: opts.Debounce,
		limiter:  rate.NewLimiter(limit, 1),
		base:     base,
	}
}

// Trigger 请求一次静默刷新
func (c *Coalescer[T]) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.scheduleLocked(c.debounce)
}

func (c *Coalescer[T]) scheduleLocked(d time.Duration) {
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(d, c.fire)
}

// fire 防抖到期，检查在途与限速后发起静默调用
func (c *Coalescer[T]) fire() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	if c.inFlight {
		c.pending = true
		c.mu.Unlock()
		metrics.WorkspaceFetchesTotal.WithLabelValues(string(FetchSilent), "coalesced").Inc()
		return
	}
	r := c.limiter.Reserve()
	if d := r.Delay(); d > 0 {
		r.Cancel()
		c.scheduleLocked(d)
		c.mu.Unlock()
		metrics.WorkspaceFetchesTotal.WithLabelValues(string(FetchSilent), "throttled").Inc()
		return
	}
	ctx, gen := c.startLocked(c.base)
	c.mu.Unlock()

	go func() {
		_, _ = c.run(ctx, gen, FetchSilent)
	}()
}

// Do 发起显式调用并等待结果，取消在途调用与待执行的静默刷新
func (c *Coalescer[T]) Do(ctx context.Context) (T, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		var zero T
		return zero, ErrClosed
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.pending = false
	// 显式调用不受限速约束，但计入间隔
	c.limiter.Allow()
	fctx, gen := c.startLocked(ctx)
	c.mu.Unlock()

	return c.run(fctx, gen, FetchExplicit)
}

// startLocked 取消在途调用并分配新代号
func (c *Coalescer[T]) startLocked(parent context.Context) (context.Context, uint64) {
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.inFlight = true
	return ctx, c.gen
}

func (c *Coalescer[T]) run(ctx context.Context, gen uint64, mode FetchMode) (T, error) {
	v, err := c.fetch(ctx)

	c.mu.Lock()
	current := gen == c.gen
	again := false
	if current {
		c.inFlight = false
		if c.cancel != nil {
			c.cancel()
			c.cancel = nil
		}
		again = c.pending && !c.closed
		c.pending = false
	}
	c.mu.Unlock()

	status := "success"
	switch {
	case !current:
		status = "superseded"
	case err != nil:
		status = "error"
	}
	metrics.WorkspaceFetchesTotal.WithLabelValues(string(mode), status).Inc()

	if current && c.onResult != nil {
		c.onResult(v, err, mode)
	}
	if again {
		go c.fire()
	}
	if !current && err == nil {
		err = ErrSuperseded
	}
	return v, err
}

// Generation 当前代号
func (c *Coalescer[T]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Close 停止定时器并取消在途调用
func (c *Coalescer[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

var (
	// ErrClosed 拉取器已关闭
	ErrClosed = errors.New("workspace: coalescer closed")
	// ErrSuperseded 调用已被更新的调用取代
	ErrSuperseded = errors.New("workspace: fetch superseded")
)
