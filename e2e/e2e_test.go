package e2e

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/ecodispatch/app"
	"github.com/kilianp07/ecodispatch/config"
	"github.com/kilianp07/ecodispatch/core/factory"
	coremetrics "github.com/kilianp07/ecodispatch/core/metrics"
	"github.com/kilianp07/ecodispatch/core/results"
	"github.com/kilianp07/ecodispatch/infra/mqtt"
)

const (
	org    = "e2e_org"
	bucket = "e2e_bucket"
	token  = "e2e-token"
	topic  = "e2e/dispatch"
)

// junitReport is a minimal representation of a JUnit XML report. The E2E
// suite writes such a report so CI systems can display the results.
type junitReport struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Cases    []junitTestCase `xml:"testcase"`
}

type junitTestCase struct {
	Name    string  `xml:"name,attr"`
	Failure *string `xml:"failure,omitempty"`
	Time    float64 `xml:"time,attr"`
}

// writeJUnit writes the provided report to the given path.
func writeJUnit(path string, rep junitReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	return enc.Encode(rep)
}

// startInflux starts an InfluxDB 2.7 container initialised with the e2e
// organisation, bucket and token, and returns it along with the base URL.
func startInflux(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "e2e",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "e2e-password",
			"DOCKER_INFLUXDB_INIT_ORG":         org,
			"DOCKER_INFLUXDB_INIT_BUCKET":      bucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": token,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "8086")
	url := fmt.Sprintf("http://%s:%s", host, port.Port())
	return cont, url
}

// startMosquitto spins up a Mosquitto broker accepting anonymous clients.
func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	host, _ := cont.Host(ctx)
	port, _ := cont.MappedPort(ctx, "1883")
	return cont, fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// subscribe returns a channel receiving every payload published on topic.
func subscribe(t *testing.T, broker, topic string) <-chan []byte {
	t.Helper()
	msgs := make(chan []byte, 4)
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-subscriber")
	cli := paho.NewClient(opts)
	if tok := cli.Connect(); tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscriber connect: %v", tok.Error())
	}
	t.Cleanup(func() { cli.Disconnect(250) })
	tok := cli.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
		msgs <- m.Payload()
	})
	if tok.Wait() && tok.Error() != nil {
		t.Fatalf("subscribe: %v", tok.Error())
	}
	return msgs
}

// Test_E2E_Dispatch solves the reference scenario with the InfluxDB sink and
// the MQTT publisher enabled, then reads the dispatch table back from both.
func Test_E2E_Dispatch(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	started := time.Now()

	influxCont, influxURL := startInflux(ctx, t)
	if influxCont != nil {
		defer influxCont.Terminate(ctx) //nolint:errcheck
	}
	mqttCont, mqttURL := startMosquitto(ctx, t)
	if mqttCont != nil {
		defer mqttCont.Terminate(ctx) //nolint:errcheck
	}
	t.Logf("InfluxDB started at %s", influxURL)
	t.Logf("Mosquitto started at %s", mqttURL)

	reader := NewDispatchReader(influxURL, org, bucket, token)
	defer reader.Close()
	if err := reader.SetupBucket(ctx); err != nil {
		t.Fatalf("setup bucket: %v", err)
	}
	msgs := subscribe(t, mqttURL, topic)

	cfg := &config.Config{
		Metrics: coremetrics.Config{Sinks: []factory.ModuleConfig{{
			Type: "influx",
			Conf: map[string]any{"url": influxURL, "token": token, "org": org, "bucket": bucket},
		}}},
		MQTT: mqtt.Config{Broker: mqttURL, ClientID: "e2e-publisher", Topic: topic},
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}
	runner, err := app.New(cfg)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	defer runner.Close()

	sys, err := config.LoadScenario("../config/testdata/reference.yaml")
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}
	run, err := runner.Run(ctx, sys)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Results == nil {
		t.Fatalf("run %s not optimal: %s", run.ID, run.Solution.Status)
	}

	select {
	case payload := <-msgs:
		var msg struct {
			RunID     string  `json:"run_id"`
			Objective float64 `json:"objective"`
		}
		if err := json.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode mqtt payload: %v", err)
		}
		if msg.RunID != run.ID {
			t.Fatalf("mqtt run id %q, want %q", msg.RunID, run.ID)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no dispatch table published on MQTT")
	}

	steps, err := reader.DispatchSteps(ctx, run.ID)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(steps) != len(run.Results.Rows) {
		t.Fatalf("influx returned %d steps, want %d", len(steps), len(run.Results.Rows))
	}
	for _, row := range run.Results.Rows {
		got, ok := steps[row.Step]
		if !ok {
			t.Fatalf("step %d missing from influx", row.Step)
		}
		if v := got[results.ObjectiveColumn]; math.Abs(v-8.9) > 1e-6 {
			t.Fatalf("step %d objective %v, want 8.9", row.Step, v)
		}
		for j, col := range run.Results.Columns {
			if v := got[col]; math.Abs(v-row.Values[j]) > 1e-6 {
				t.Fatalf("step %d %s = %v, want %v", row.Step, col, v, row.Values[j])
			}
		}
	}

	// Produce JUnit report
	dir := t.TempDir()
	rep := junitReport{Name: "e2e", Tests: 1, Cases: []junitTestCase{{Name: "Test_E2E_Dispatch", Time: time.Since(started).Seconds()}}}
	if err := writeJUnit(filepath.Join(dir, "e2e.xml"), rep); err != nil {
		t.Logf("write junit: %v", err)
	}
}
