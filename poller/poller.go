// Package poller runs a set of modbus.BuilderRequest batches on their
// own interval tickers and emits the extracted field values of each
// completed request to a shared result channel, with per-batch
// success/error statistics for observability.
package poller

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	modbus "github.com/dkvol/gomodbus-transact"
	"github.com/dkvol/gomodbus-transact/packet"
	"github.com/dkvol/gomodbus-transact/transport"
)

const (
	jobHealthTickInterval = 60 * time.Second
)

// ErrClientNotConnected is returned by a ConnectFunc implementation when
// the target address can not be reached at all (as opposed to a request
// timing out on an otherwise live connection).
var ErrClientNotConnected = errors.New("poller: client not connected")

// Client is the subset of modbus.Client a job needs to run its batch.
// *modbus.Client satisfies this directly.
type Client interface {
	DoBatch(ctx context.Context, unitID uint8, functionCode uint8, startAddress, qty uint16) ([]byte, error)
	Close() error
}

// ConnectFunc opens (or reuses, see NewSingleConnectionPerAddressClientFunc)
// a Client for address.
type ConnectFunc func(ctx context.Context, address string) (Client, error)

// Poller is service for sending modbus requests with interval to servers and emitting extracted
// values from request to result channel.
type Poller struct {
	logger      *slog.Logger
	connectFunc ConnectFunc

	isRunning atomic.Bool
	jobs      []job

	ResultChan chan Result
}

// Config is configuration for Poller
type Config struct {
	// Logger is logger instance used by poller to log.
	// Defaults to slog.Default
	Logger *slog.Logger

	// ConnectFunc is used by poller jobs to open connection to modbus server and request data from it
	// Defaults to DefaultConnectClient
	ConnectFunc ConnectFunc

	// OnClientDoErrorFunc is called when Client.DoBatch returns with an error.
	// User can decide to suppress certain errors by not returning from this function. In that
	// case these errors will not be included in statistics.
	OnClientDoErrorFunc func(err error, batchIndex int) error

	// TimeNow allows mocking Result.Time value in tests
	// Defaults to time.Now
	TimeNow func() time.Time
}

// NewPollerWithConfig creates new instance of Poller with given configuration
func NewPollerWithConfig(batches []modbus.BuilderRequest, conf Config) *Poller {
	p := &Poller{
		logger:      conf.Logger,
		connectFunc: conf.ConnectFunc,
		ResultChan:  make(chan Result, 2*len(batches)),

		jobs: make([]job, len(batches)),
	}
	if conf.Logger == nil {
		p.logger = slog.Default()
	}
	if conf.ConnectFunc == nil {
		p.connectFunc = DefaultConnectClient
	}
	timeNow := time.Now
	if conf.TimeNow != nil {
		timeNow = conf.TimeNow
	}
	for i, batch := range batches {
		p.jobs[i] = job{
			timeNow:             timeNow,
			logger:              p.logger,
			connectFunc:         p.connectFunc,
			onClientDoErrorFunc: conf.OnClientDoErrorFunc,

			stats: jobBatchStatistics{
				lock: sync.RWMutex{},
				stats: BatchStatistics{
					BatchIndex:    i,
					FunctionCode:  batch.FunctionCode,
					ServerAddress: batch.ServerAddress,
				},
			},
			batchIndex:  i,
			batch:       batch,
			resultsChan: p.ResultChan,
		}
	}

	return p
}

// NewPoller creates new instance of Poller with default configuration
func NewPoller(batches []modbus.BuilderRequest) *Poller {
	return NewPollerWithConfig(batches, Config{})
}

// BatchStatistics returns statistics of all Poller batches.
func (p *Poller) BatchStatistics() []BatchStatistics {
	result := make([]BatchStatistics, len(p.jobs))
	for i := range p.jobs {
		result[i] = p.jobs[i].stats.Stats()
	}
	return result
}

// Poll starts polling until context is cancelled
func (p *Poller) Poll(ctx context.Context) error {
	if isRunning := p.isRunning.Swap(true); isRunning {
		return errors.New("poller is already running")
	}
	defer func() {
		p.isRunning.Store(false)
	}()
	if len(p.jobs) == 0 {
		<-ctx.Done()
		return nil
	}

	wg := new(sync.WaitGroup)
	for i := range p.jobs {
		wg.Add(1)
		go func(ctx context.Context, wg *sync.WaitGroup, job *job) {
			defer wg.Done()
			job.Start(ctx)
		}(ctx, wg, &p.jobs[i])
	}
	wg.Wait()
	return nil
}

type job struct {
	timeNow             func() time.Time
	logger              *slog.Logger
	connectFunc         ConnectFunc
	onClientDoErrorFunc func(err error, batchIndex int) error

	batchIndex int
	batch      modbus.BuilderRequest
	stats      jobBatchStatistics

	resultsChan chan Result
}

func (j *job) Start(ctx context.Context) {
	const defaultRetry = 1 * time.Second
	retryTime := defaultRetry
	delay := time.NewTimer(retryTime)
	defer delay.Stop()

	for {
		start := j.timeNow()
		j.stats.IncStartCount()
		j.stats.IsPolling(true)
		err := j.poll(ctx)
		j.stats.IsPolling(false)

		if err == nil || ctx.Err() != nil {
			return
		}
		elapsed := j.timeNow().Sub(start)
		if elapsed > 1*time.Minute {
			retryTime = defaultRetry
		} else {
			retryTime = cmp.Or(retryTime*2, 1*time.Minute)
		}
		j.logger.Error("poll failed",
			"error", err,
			"elapsed", elapsed,
			"retry_time", retryTime,
		)

		delay.Reset(retryTime)
		select {
		case <-delay.C:
			continue
		case <-ctx.Done():
			return
		}
	}
}

// Result contains extracted values from response with request start time
type Result struct {
	// BatchIndex is index of modbus.BuilderRequest that Poller was created and produced these results
	BatchIndex int
	// Time contains request start time
	Time time.Time
	// Values contains extracted values from response
	Values []modbus.FieldValue
}

func (j *job) poll(ctx context.Context) error {
	batch := j.batch
	client, err := j.connectFunc(ctx, batch.ServerAddress)
	if err != nil {
		return err
	}
	defer client.Close()

	healthTicker := time.NewTicker(jobHealthTickInterval)
	defer healthTicker.Stop()
	ticker := time.NewTicker(batch.RequestInterval)
	defer ticker.Stop()

	functionCode := batch.FunctionCode
	const maxDoRetryCount = 5
	countDoErr := 0
	for {
		select {
		case <-ticker.C:
			start := j.timeNow()
			raw, err := client.DoBatch(ctx, batch.UnitID, batch.FunctionCode, batch.StartAddress, batch.Quantity)
			reqDuration := j.timeNow().Sub(start)

			if err != nil && j.onClientDoErrorFunc != nil {
				// user can decide to suppress certain errors, for example some
				// controllers return an illegal-data-value exception when the
				// equipment is simply powered off
				err = j.onClientDoErrorFunc(err, j.batchIndex)
				if err == nil {
					continue
				}
			}

			if err != nil {
				countDoErr++
				j.stats.IncRequestErrCount()

				var mbErr *packet.ModbusException
				if errors.As(err, &mbErr) {
					j.stats.IncRequestModbusErrCount()
				}

				j.logger.Error("request failed",
					"err", err,
					"req_duration", reqDuration,
					"fc", functionCode,
					"server", batch.ServerAddress,
					"err_count", countDoErr,
				)

				if errors.Is(err, ErrClientNotConnected) ||
					errors.Is(err, context.DeadlineExceeded) ||
					errors.Is(err, context.Canceled) {
					return err
				}
				if countDoErr >= maxDoRetryCount {
					return err
				}
				continue
			}
			countDoErr = 0
			j.stats.IncRequestOKCount()

			values, err := batch.ExtractFields(raw)
			if err != nil {
				j.logger.Error("request extraction failed",
					"err", err,
					"fc", functionCode,
					"server", batch.ServerAddress,
				)
				continue
			}
			result := Result{
				BatchIndex: j.batchIndex,
				Time:       start,
				Values:     values,
			}
			select {
			case j.resultsChan <- result:
				j.logger.Log(ctx, slog.Level(-8), "request success",
					"count_ok", j.stats.stats.RequestOKCount,
					"req_duration", reqDuration,
					"values", values,
				)
			default:
				j.stats.IncSendSkipCount()
				j.logger.Warn("skipped values send to result chan",
					"server", batch.ServerAddress,
				)
			}
		case <-healthTicker.C:
			j.logger.Debug("job health tick",
				"fc", functionCode,
				"server", batch.ServerAddress,
				"stats", j.stats.stats,
			)
		case <-ctx.Done():
			j.logger.Info("job done",
				"fc", functionCode,
				"server", batch.ServerAddress,
			)
			return ctx.Err()
		}
	}
}

// DefaultConnectClient opens a Client for addressURL: a `tcp://host:port`
// URL, or an address with no `://` scheme at all, dials transport.TCP;
// with any other scheme the part after `://` is treated as a serial
// device path (optionally with a `?baud=` query parameter, default 19200).
func DefaultConnectClient(ctx context.Context, addressURL string) (Client, error) {
	scheme, rest, hasScheme := strings.Cut(addressURL, "://")
	if !hasScheme {
		return newClientOverTCP(ctx, addressURL)
	}

	switch scheme {
	case "tcp":
		return newClientOverTCP(ctx, rest)
	default:
		return newClientOverSerial(rest)
	}
}

func newClientOverTCP(ctx context.Context, hostPort string) (Client, error) {
	t, err := transport.DialTCP(ctx, hostPort)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClientNotConnected, err)
	}
	return modbus.NewClient(t), nil
}

func newClientOverSerial(devicePath string) (Client, error) {
	device := devicePath
	baud := 19200
	if i := strings.IndexByte(devicePath, '?'); i != -1 {
		device = devicePath[:i]
		if u, err := url.Parse(devicePath); err == nil {
			if raw := u.Query().Get("baud"); raw != "" {
				if parsed, err := strconv.Atoi(raw); err == nil {
					baud = parsed
				}
			}
		}
	}
	t, err := transport.OpenSerial(device, baud, 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClientNotConnected, err)
	}
	return modbus.NewClient(t), nil
}

// BatchStatistics holds statistics about specific Poller batch internal state. Batch is identified by BatchIndex.
type BatchStatistics struct {
	BatchIndex int

	FunctionCode  uint8
	ServerAddress string

	// IsPolling shows if that batch job currently in polling or waiting for retry
	IsPolling bool

	// StartCount is count how many times the poll job has (re)started
	StartCount uint64

	// RequestOKCount is count how many modbus request have succeeded for that job
	RequestOKCount uint64

	// RequestErrCount is total count how many request have failed for that job
	// this count does not distinguish modbus errors from network errors
	RequestErrCount uint64

	// RequestModbusErrCount is count how many request have failed with modbus error code for that job
	RequestModbusErrCount uint64

	// SendSkipCount is count how many ResultChan sends were skipped due blocked Result channel
	SendSkipCount uint64
}

type jobBatchStatistics struct {
	lock  sync.RWMutex
	stats BatchStatistics
}

func (j *jobBatchStatistics) IsPolling(isPolling bool) {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.stats.IsPolling = isPolling
}

func (j *jobBatchStatistics) IncStartCount() {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.stats.StartCount++
}

func (j *jobBatchStatistics) IncRequestOKCount() {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.stats.RequestOKCount++
}

func (j *jobBatchStatistics) IncRequestErrCount() {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.stats.RequestErrCount++
}

func (j *jobBatchStatistics) IncRequestModbusErrCount() {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.stats.RequestModbusErrCount++
}

func (j *jobBatchStatistics) IncSendSkipCount() {
	j.lock.Lock()
	defer j.lock.Unlock()
	j.stats.SendSkipCount++
}

func (j *jobBatchStatistics) Stats() BatchStatistics {
	j.lock.RLock()
	defer j.lock.RUnlock()
	return j.stats
}
