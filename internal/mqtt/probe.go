package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/photoscale/photoscale/internal/calibration"
	"github.com/photoscale/photoscale/internal/logger"
	"github.com/photoscale/photoscale/internal/units"
)

// TestResult represents the result of one connection test stage.
type TestResult struct {
	Success    bool   `json:"success"`
	Stage      string `json:"stage"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
	IsProgress bool   `json:"isProgress,omitempty"`
	State      string `json:"state,omitempty"` // running, completed, failed, timeout
	Timestamp  string `json:"timestamp,omitempty"`
}

// TestStage represents a stage in the MQTT test process
type TestStage int

const (
	DNSResolution TestStage = iota
	TCPConnection
	MQTTConnection
	MessagePublish
)

// String returns the string representation of a test stage
func (s TestStage) String() string {
	switch s {
	case DNSResolution:
		return "DNS Resolution"
	case TCPConnection:
		return "TCP Connection"
	case MQTTConnection:
		return "MQTT Connection"
	case MessagePublish:
		return "Message Publishing"
	default:
		return "Unknown Stage"
	}
}

// Timeout constants for the test stages
const (
	dnsTimeout  = 5 * time.Second
	tcpTimeout  = 5 * time.Second
	mqttTimeout = 10 * time.Second
	pubTimeout  = 5 * time.Second
)

// runNetworkTest executes test with the stage's context and converts the
// outcome into a TestResult.
func runNetworkTest(ctx context.Context, stage TestStage, test func(context.Context) error) TestResult {
	resultChan := make(chan error, 1)
	go func() {
		resultChan <- test(ctx)
	}()

	select {
	case <-ctx.Done():
		return TestResult{
			Stage:   stage.String(),
			Error:   "operation timeout",
			Message: fmt.Sprintf("%s operation timed out", stage),
			State:   "timeout",
		}
	case err := <-resultChan:
		if err != nil {
			return TestResult{
				Stage:   stage.String(),
				Error:   err.Error(),
				Message: fmt.Sprintf("Failed to perform %s", stage),
			}
		}
	}

	return TestResult{
		Success: true,
		Stage:   stage.String(),
		Message: fmt.Sprintf("Successfully completed %s", stage),
	}
}

func (c *client) testDNSStage(ctx context.Context, brokerHost string) TestResult {
	dnsCtx, cancel := context.WithTimeout(ctx, dnsTimeout)
	defer cancel()

	return runNetworkTest(dnsCtx, DNSResolution, func(ctx context.Context) error {
		_, err := net.DefaultResolver.LookupHost(ctx, brokerHost)
		return err
	})
}

func (c *client) testTCPStage(ctx context.Context) TestResult {
	tcpCtx, cancel := context.WithTimeout(ctx, tcpTimeout)
	defer cancel()

	return runNetworkTest(tcpCtx, TCPConnection, func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", extractHostPort(c.config.Broker))
		if err != nil {
			return err
		}
		return conn.Close()
	})
}

func (c *client) testMQTTStage(ctx context.Context) TestResult {
	if c.IsConnected() {
		return TestResult{
			Success: true,
			Stage:   MQTTConnection.String(),
			Message: "Already connected to MQTT broker",
		}
	}

	mqttCtx, cancel := context.WithTimeout(ctx, mqttTimeout)
	defer cancel()

	return runNetworkTest(mqttCtx, MQTTConnection, c.Connect)
}

// testPublishStage publishes a sample calibration on <topic>/test.
func (c *client) testPublishStage(ctx context.Context) TestResult {
	pubCtx, cancel := context.WithTimeout(ctx, pubTimeout)
	defer cancel()

	return runNetworkTest(pubCtx, MessagePublish, func(ctx context.Context) error {
		payload, err := json.Marshal(sampleMessage())
		if err != nil {
			return fmt.Errorf("failed to create test message: %w", err)
		}
		return c.Publish(ctx, joinTopic(c.config.Topic, "test"), payload)
	})
}

func sampleMessage() *CalibrationMessage {
	res, _ := calibration.NewResult(10, units.CM, 2.426, &calibration.CoinCircle{
		CoinID:     calibration.DefaultCoinID,
		CoinName:   "Connection test",
		DiameterMM: 24.26,
		Radius:     121.3,
		ZoomScale:  1,
	})
	return &CalibrationMessage{SessionID: "connection-test", Result: res, PublishedAt: time.Now().UTC()}
}

// TestConnection performs a multi-stage test of the MQTT connection: DNS
// (skipped for IP brokers), TCP, MQTT connect and a test publish. The
// first failing stage ends the test.
func (c *client) TestConnection(ctx context.Context, resultChan chan<- TestResult) {
	sendResult := func(result TestResult) {
		switch {
		case result.State != "":
		case result.Error != "":
			result.State = "failed"
		case result.IsProgress:
			result.State = "running"
		default:
			result.State = "completed"
		}
		result.Timestamp = time.Now().Format(time.RFC3339)

		if result.Success {
			c.log.Debug("mqtt test stage", logger.String("stage", result.Stage), logger.String("state", result.State))
		} else {
			c.log.Warn("mqtt test stage failed",
				logger.String("stage", result.Stage),
				logger.String("error", result.Error))
		}

		select {
		case <-ctx.Done():
		case resultChan <- result:
		}
	}

	if err := ctx.Err(); err != nil {
		sendResult(TestResult{
			Stage:   "Test Setup",
			Message: "Test cancelled",
			Error:   err.Error(),
			State:   "timeout",
		})
		return
	}

	runStage := func(stage TestStage, test func() TestResult) bool {
		sendResult(TestResult{
			Success:    true,
			Stage:      stage.String(),
			Message:    fmt.Sprintf("Running %s test...", stage),
			IsProgress: true,
		})
		result := test()
		sendResult(result)
		return result.Success
	}

	brokerHost := extractHost(c.config.Broker)
	if !isIPAddress(brokerHost) {
		if !runStage(DNSResolution, func() TestResult { return c.testDNSStage(ctx, brokerHost) }) {
			return
		}
	}
	if !runStage(TCPConnection, func() TestResult { return c.testTCPStage(ctx) }) {
		return
	}
	if !runStage(MQTTConnection, func() TestResult { return c.testMQTTStage(ctx) }) {
		return
	}
	runStage(MessagePublish, func() TestResult { return c.testPublishStage(ctx) })
}

// isIPAddress checks if host, optionally with scheme and port, is an IP.
func isIPAddress(host string) bool {
	if scheme, rest, ok := strings.Cut(host, "://"); ok {
		if scheme != "mqtt" && scheme != "tcp" {
			return false
		}
		host = rest
	}

	switch {
	case strings.HasPrefix(host, "["):
		end := strings.LastIndex(host, "]")
		if end == -1 {
			return false
		}
		host = host[1:end]
	case strings.Count(host, ":") == 1:
		host, _, _ = strings.Cut(host, ":")
	}

	return net.ParseIP(host) != nil
}

// extractHost extracts the hostname from broker URL
func extractHost(broker string) string {
	if _, rest, ok := strings.Cut(broker, "://"); ok {
		broker = rest
	}

	if strings.HasPrefix(broker, "[") {
		end := strings.LastIndex(broker, "]")
		if end == -1 {
			return broker
		}
		return broker[1:end]
	}

	if strings.Count(broker, ":") <= 1 {
		if i := strings.LastIndex(broker, ":"); i != -1 {
			return broker[:i]
		}
	}
	return broker
}

// extractHostPort extracts host:port from broker URL, defaulting to 1883.
func extractHostPort(broker string) string {
	if _, rest, ok := strings.Cut(broker, "://"); ok {
		broker = rest
	}

	if strings.HasPrefix(broker, "[") {
		if strings.Contains(broker, "]:") {
			return broker
		}
		if strings.HasSuffix(broker, "]") {
			return broker + ":1883"
		}
		return broker
	}

	// raw IPv6
	if strings.Count(broker, ":") > 1 {
		return "[" + broker + "]:1883"
	}

	if !strings.Contains(broker, ":") {
		return broker + ":1883"
	}
	return broker
}
