package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrPoolShutdown = errors.New("worker pool is shutdown")
	ErrNilTask      = errors.New("task execute function is nil")
)

// ワーカープール
// 同時に実行される解析の数をワーカー数で制限する
type Pool struct {
	jobs          chan job
	retire        chan struct{}
	maxWorkers    int32
	minWorkers    int32
	metrics       metrics
	isShutdown    atomic.Bool
	mu            sync.RWMutex
	wg            sync.WaitGroup
	shutdownOnce  sync.Once
	activeWorkers atomic.Int32
	shutdownChan  chan struct{}
	monitorTick   time.Duration
}

// タスクの実行結果
type Result struct {
	Value interface{}
	Err   error
}

// ワーカーが実行するタスク
type Task struct {
	Execute func(ctx context.Context) (interface{}, error)
}

// キューに積まれるタスクと結果の受け取り先
// 結果は投入元ごとのチャネルに返す
type job struct {
	ctx    context.Context
	task   Task
	result chan Result
}

// ワーカープールの統計情報
type Stats struct {
	CurrentWorkers   int32         `json:"currentWorkers"`
	MaxWorkers       int32         `json:"maxWorkers"`
	TasksProcessed   int64         `json:"tasksProcessed"`
	TasksQueued      int64         `json:"tasksQueued"`
	AverageLatency   time.Duration `json:"averageLatency"`
	ErrorRate        float64       `json:"errorRate"`
	QueueUtilization float64       `json:"queueUtilization"`
}

type metrics struct {
	tasksProcessed int64
	tasksQueued    int64
	processingTime int64 // ナノ秒単位の合計処理時間
	errors         int64
}

// 新しいワーカープールを作成
func NewPool(minWorkers, maxWorkers int32) *Pool {
	if minWorkers <= 0 {
		minWorkers = 1
	}
	if maxWorkers < minWorkers {
		maxWorkers = minWorkers
	}

	p := &Pool{
		jobs:         make(chan job, int(maxWorkers*4)),
		retire:       make(chan struct{}),
		maxWorkers:   maxWorkers,
		minWorkers:   minWorkers,
		shutdownChan: make(chan struct{}),
		monitorTick:  50 * time.Millisecond,
	}

	for i := int32(0); i < minWorkers; i++ {
		p.startWorker()
	}

	go p.monitorWorkers()

	return p
}

// 新しいワーカーを起動
func (p *Pool) startWorker() {
	p.wg.Add(1)
	p.activeWorkers.Add(1)
	go p.run()
}

// ワーカーのメインループ
func (p *Pool) run() {
	defer func() {
		p.activeWorkers.Add(-1)
		p.wg.Done()
	}()

	for {
		select {
		case <-p.shutdownChan:
			return
		case <-p.retire:
			return
		case j := <-p.jobs:
			p.execute(j)
		}
	}
}

// タスクを実行して結果を投入元に返す
func (p *Pool) execute(j job) {
	if err := j.ctx.Err(); err != nil {
		j.result <- Result{Err: err}
		return
	}

	start := time.Now()
	value, err := runTask(j.ctx, j.task)
	duration := time.Since(start)

	atomic.AddInt64(&p.metrics.tasksProcessed, 1)
	atomic.AddInt64(&p.metrics.processingTime, duration.Nanoseconds())
	if err != nil {
		atomic.AddInt64(&p.metrics.errors, 1)
	}

	// バッファ付きなので投入元が既にいなくてもブロックしない
	j.result <- Result{Value: value, Err: err}
}

// パニックをエラーに変換してタスクを実行
func runTask(ctx context.Context, task Task) (value interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task.Execute(ctx)
}

// ワーカー数を監視し、必要に応じて調整
func (p *Pool) monitorWorkers() {
	ticker := time.NewTicker(p.monitorTick)
	defer ticker.Stop()

	for {
		select {
		case <-p.shutdownChan:
			return
		case <-ticker.C:
		}

		queueSize := len(p.jobs)
		currentWorkers := p.activeWorkers.Load()

		// キューサイズが現在のワーカー数の75%を超えている場合、ワーカーを追加
		if float64(queueSize) > float64(currentWorkers)*0.75 && currentWorkers < p.maxWorkers {
			needed := min(p.maxWorkers-currentWorkers, int32(2))
			for i := int32(0); i < needed; i++ {
				p.startWorker()
			}
			continue
		}

		// キューが少なく、余剰ワーカーがいる場合は待機中のワーカーを停止
		if queueSize < int(currentWorkers)/4 && currentWorkers > p.minWorkers {
			toRemove := min(currentWorkers-p.minWorkers, int32(2))
			for i := int32(0); i < toRemove; i++ {
				select {
				case p.retire <- struct{}{}:
				default:
				}
			}
		}
	}
}

// ワーカープールの統計情報
func (p *Pool) GetStats() Stats {
	tasksProcessed := atomic.LoadInt64(&p.metrics.tasksProcessed)
	processTime := atomic.LoadInt64(&p.metrics.processingTime)
	errCount := atomic.LoadInt64(&p.metrics.errors)

	var averageLatency time.Duration
	var errorRate float64
	if tasksProcessed > 0 {
		averageLatency = time.Duration(processTime / tasksProcessed)
		errorRate = float64(errCount) / float64(tasksProcessed)
	}

	var queueUtilization float64
	if c := cap(p.jobs); c > 0 {
		queueUtilization = float64(len(p.jobs)) / float64(c)
	}

	return Stats{
		CurrentWorkers:   p.activeWorkers.Load(),
		MaxWorkers:       p.maxWorkers,
		TasksProcessed:   tasksProcessed,
		TasksQueued:      atomic.LoadInt64(&p.metrics.tasksQueued),
		AverageLatency:   averageLatency,
		ErrorRate:        errorRate,
		QueueUtilization: queueUtilization,
	}
}

// ワーカープールを終了
// 実行中のタスクの完了を待ち、キューに残ったタスクは破棄する
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown.Store(true)
		close(p.shutdownChan)
		p.mu.Unlock()

		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()

		select {
		case <-ctx.Done():
			err = ctx.Err()
		case <-done:
		}
	})
	return err
}

// タスクを投入し、結果を待つ
func (p *Pool) Submit(ctx context.Context, task Task) (interface{}, error) {
	if task.Execute == nil {
		return nil, ErrNilTask
	}

	p.mu.RLock()
	if p.isShutdown.Load() {
		p.mu.RUnlock()
		return nil, ErrPoolShutdown
	}
	p.mu.RUnlock()

	j := job{ctx: ctx, task: task, result: make(chan Result, 1)}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.shutdownChan:
		return nil, ErrPoolShutdown
	case p.jobs <- j:
		atomic.AddInt64(&p.metrics.tasksQueued, 1)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.shutdownChan:
		return nil, ErrPoolShutdown
	case result := <-j.result:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Value, nil
	}
}
