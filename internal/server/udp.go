package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/skypro1111/passwdgen-service/internal/config"
	"github.com/skypro1111/passwdgen-service/internal/dispatch"
	"github.com/skypro1111/passwdgen-service/internal/generator"
	"github.com/skypro1111/passwdgen-service/internal/metrics"
	"github.com/skypro1111/passwdgen-service/internal/protocol"
	"github.com/skypro1111/passwdgen-service/internal/ratelimit"
)

const requestIDLength = 10

// UDPServer answers password requests received as UDP datagrams
type UDPServer struct {
	conn         *net.UDPConn
	config       *config.ServerConfig
	source       string
	logPasswords bool
	logger       *slog.Logger
	metrics      *metrics.Metrics
	limiter      *ratelimit.PeerLimiter // nil when rate limiting is disabled

	// Concurrency management
	ctx        context.Context
	cancel     context.CancelFunc
	receiverWG sync.WaitGroup
	workerWG   sync.WaitGroup
	stopOnce   sync.Once

	// Packet processing
	packetChan chan *incomingPacket
	errChan    chan error

	// Counters
	datagramsReceived uint64
	requestsHandled   uint64
	outcomes          map[dispatch.Outcome]uint64
	sendErrors        uint64
	rateLimited       uint64
	queueDrops        uint64
	mu                sync.RWMutex
}

// incomingPacket represents a received UDP datagram with metadata
type incomingPacket struct {
	id         string
	data       []byte
	remoteAddr *net.UDPAddr
	timestamp  time.Time
}

// NewUDPServer creates a new UDP server instance. limiter may be nil.
func NewUDPServer(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, limiter *ratelimit.PeerLimiter) *UDPServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &UDPServer{
		config:       &cfg.Server,
		source:       cfg.Generator.Source,
		logPasswords: cfg.Logging.ShouldLogPasswords(),
		logger:       logger,
		metrics:      m,
		limiter:      limiter,
		ctx:          ctx,
		cancel:       cancel,
		packetChan:   make(chan *incomingPacket, cfg.Server.QueueSize),
		errChan:      make(chan error, 1),
		outcomes:     make(map[dispatch.Outcome]uint64),
	}
}

// Start binds the socket and begins answering datagrams
func (s *UDPServer) Start() error {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(s.config.BindAddress, fmt.Sprint(s.config.UDPPort)))
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address: %w", err)
	}

	// One dispatcher per worker, each with its own random stream
	workers := s.config.Workers
	if workers < 1 {
		workers = 1
	}
	dispatchers := make([]*dispatch.Dispatcher, workers)
	for i := range dispatchers {
		gen, err := newGenerator(s.source, uint64(i))
		if err != nil {
			return fmt.Errorf("failed to create generator for worker %d: %w", i, err)
		}
		dispatchers[i] = dispatch.New(gen)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on UDP: %w", err)
	}
	s.conn = conn

	if err := s.conn.SetReadBuffer(s.config.BufferSize); err != nil {
		s.logger.Warn("Failed to set UDP read buffer size",
			slog.Int("buffer_size", s.config.BufferSize),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("UDP server started",
		slog.String("address", s.conn.LocalAddr().String()),
		slog.Int("workers", workers),
		slog.String("random_source", s.source),
		slog.Bool("rate_limited", s.limiter != nil),
	)

	for i, d := range dispatchers {
		s.workerWG.Add(1)
		go s.packetProcessor(i, d)
	}

	s.receiverWG.Add(1)
	go s.receiveLoop()

	return nil
}

// Stop gracefully stops the UDP server. Queued datagrams are still answered.
func (s *UDPServer) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping UDP server...")

		s.cancel()

		// Close UDP connection to unblock the receive loop
		if s.conn != nil {
			if err := s.conn.SetReadDeadline(time.Now()); err != nil {
				s.logger.Warn("Error interrupting UDP read", slog.String("error", err.Error()))
			}
		}
		s.receiverWG.Wait()

		// No more producers: let the workers drain the queue
		close(s.packetChan)
		s.workerWG.Wait()

		if s.conn != nil {
			if err := s.conn.Close(); err != nil {
				s.logger.Warn("Error closing UDP connection", slog.String("error", err.Error()))
			}
		}

		stats := s.GetStatistics()
		s.logger.Info("UDP server stopped",
			slog.Uint64("datagrams_received", stats.DatagramsReceived),
			slog.Uint64("requests_handled", stats.RequestsHandled),
			slog.Uint64("send_errors", stats.SendErrors),
		)
	})

	return nil
}

// Errors delivers a fatal receive error; the server stops reading after sending it
func (s *UDPServer) Errors() <-chan error {
	return s.errChan
}

// LocalAddr returns the bound address, or nil before Start
func (s *UDPServer) LocalAddr() net.Addr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr()
}

// receiveLoop is the main datagram receiving loop
func (s *UDPServer) receiveLoop() {
	defer s.receiverWG.Done()

	buffer := make([]byte, protocol.BufferSize)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug("Receive loop stopping due to context cancellation")
			return
		default:
		}

		// Bounded wait so cancellation is noticed
		if err := s.conn.SetReadDeadline(time.Now().Add(s.config.GetReadTimeout())); err != nil {
			s.fatal(fmt.Errorf("failed to set read deadline: %w", err))
			return
		}

		n, remoteAddr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			select {
			case <-s.ctx.Done():
				return
			default:
				s.fatal(fmt.Errorf("failed to receive request from client: %w", err))
				return
			}
		}

		s.mu.Lock()
		s.datagramsReceived++
		s.mu.Unlock()
		s.metrics.RecordDatagramReceived()

		// Copy out of the reused buffer
		payload := protocol.Truncate(buffer[:n])
		packetData := make([]byte, len(payload))
		copy(packetData, payload)

		packet := &incomingPacket{
			id:         newRequestID(),
			data:       packetData,
			remoteAddr: remoteAddr,
			timestamp:  time.Now(),
		}

		if s.limiter != nil && !s.limiter.Allow(remoteAddr.IP.String()) {
			s.mu.Lock()
			s.rateLimited++
			s.mu.Unlock()
			s.metrics.RecordRateLimited()

			s.logger.Warn("Rate limit exceeded, dropping datagram",
				slog.String("request_id", packet.id),
				slog.String("remote_addr", remoteAddr.String()),
			)
			continue
		}

		select {
		case s.packetChan <- packet:
			s.metrics.SetQueueSize(len(s.packetChan))
		default:
			s.mu.Lock()
			s.queueDrops++
			s.mu.Unlock()

			s.logger.Warn("Request queue full, dropping datagram",
				slog.String("request_id", packet.id),
				slog.String("remote_addr", remoteAddr.String()),
				slog.Int("packet_size", n),
			)
		}
	}
}

// fatal reports an unrecoverable transport error to the owner of the server
func (s *UDPServer) fatal(err error) {
	s.logger.Error("UDP receive failed", slog.String("error", err.Error()))

	select {
	case s.errChan <- err:
	default:
	}
}

// packetProcessor answers datagrams from the queue in arrival order
func (s *UDPServer) packetProcessor(workerID int, d *dispatch.Dispatcher) {
	defer s.workerWG.Done()

	s.logger.Debug("Packet processor started", slog.Int("worker_id", workerID))

	for packet := range s.packetChan {
		s.handlePacket(packet, d, workerID)
		s.metrics.SetQueueSize(len(s.packetChan))
	}

	s.logger.Debug("Packet processor stopped", slog.Int("worker_id", workerID))
}

// handlePacket answers a single datagram with exactly one reply
func (s *UDPServer) handlePacket(packet *incomingPacket, d *dispatch.Dispatcher, workerID int) {
	logger := s.logger.With(
		slog.String("request_id", packet.id),
		slog.String("remote_addr", packet.remoteAddr.String()),
		slog.Int("worker_id", workerID),
	)

	logger.Info("New request", slog.Int("payload_size", len(packet.data)))

	result := d.Handle(packet.data)
	elapsed := time.Since(packet.timestamp)

	s.mu.Lock()
	s.requestsHandled++
	s.outcomes[result.Outcome]++
	s.mu.Unlock()
	s.metrics.RecordRequest("udp", result.Outcome.String(), passwordTypeLabel(result), elapsed.Seconds())

	if _, err := s.conn.WriteToUDP(protocol.Truncate(result.Response), packet.remoteAddr); err != nil {
		s.mu.Lock()
		s.sendErrors++
		s.mu.Unlock()
		s.metrics.RecordSendError()

		logger.Error("Failed to send reply",
			slog.String("outcome", result.Outcome.String()),
			slog.String("error", err.Error()),
		)
		return
	}

	logResult(logger, result, s.logPasswords, elapsed)
}

// GetStatistics returns current server statistics
func (s *UDPServer) GetStatistics() ServerStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outcomes := make(map[string]uint64, len(s.outcomes))
	for o, n := range s.outcomes {
		outcomes[o.String()] = n
	}

	workers := s.config.Workers
	if workers < 1 {
		workers = 1
	}

	return ServerStatistics{
		DatagramsReceived: s.datagramsReceived,
		RequestsHandled:   s.requestsHandled,
		Outcomes:          outcomes,
		SendErrors:        s.sendErrors,
		RateLimited:       s.rateLimited,
		QueueDrops:        s.queueDrops,
		QueueSize:         uint64(len(s.packetChan)),
		QueueCapacity:     uint64(cap(s.packetChan)),
		Workers:           workers,
	}
}

// ServerStatistics represents server performance metrics
type ServerStatistics struct {
	DatagramsReceived uint64            `json:"datagrams_received"`
	RequestsHandled   uint64            `json:"requests_handled"`
	Outcomes          map[string]uint64 `json:"outcomes"`
	SendErrors        uint64            `json:"send_errors"`
	RateLimited       uint64            `json:"rate_limited"`
	QueueDrops        uint64            `json:"queue_drops"`
	QueueSize         uint64            `json:"queue_size"`
	QueueCapacity     uint64            `json:"queue_capacity"`
	Workers           int               `json:"workers"`
}

// newGenerator builds a generator for the configured random source
func newGenerator(source string, stream uint64) (*generator.Generator, error) {
	switch source {
	case config.SourceCrypto:
		return generator.NewCryptoSeeded()
	case config.SourceTime, "":
		return generator.NewTimeSeeded(stream), nil
	default:
		return nil, fmt.Errorf("unknown random source %q", source)
	}
}

// logResult writes the outcome of a request for operator visibility
func logResult(logger *slog.Logger, result dispatch.Result, logPasswords bool, elapsed time.Duration) {
	attrs := []any{
		slog.String("outcome", result.Outcome.String()),
		slog.String("request", result.Request.String()),
		slog.Duration("elapsed", elapsed),
	}

	if result.Outcome == dispatch.OutcomeGenerated {
		if logPasswords {
			attrs = append(attrs, slog.String("password", result.Password))
		}
		logger.Info("Generated password", attrs...)
		return
	}

	if result.Err != nil {
		attrs = append(attrs, slog.String("error", result.Err.Error()))
	}
	logger.Info("Request answered", attrs...)
}

func passwordTypeLabel(result dispatch.Result) string {
	if result.Outcome != dispatch.OutcomeGenerated {
		return ""
	}
	return generator.Type(result.Request.Type).String()
}

func newRequestID() string {
	id, err := gonanoid.New(requestIDLength)
	if err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return id
}
