package ipc

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() failed: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestMetricsSendOKUpdatesBytesAndCount(t *testing.T) {
	m := newMetrics(nil, "test", Sender)
	m.sendOK(10)
	m.sendOK(5)

	if got := counterValue(t, m.sendBytes); got != 15 {
		t.Fatalf("sendBytes = %v, want 15", got)
	}
	if got := counterValue(t, m.messages.WithLabelValues("ok")); got != 2 {
		t.Fatalf("messages{result=ok} = %v, want 2", got)
	}
}

func TestMetricsErrorsDoNotTouchBytes(t *testing.T) {
	m := newMetrics(nil, "test", Sender)
	m.sendErr()
	m.sendErr()

	if got := counterValue(t, m.sendBytes); got != 0 {
		t.Fatalf("sendBytes = %v, want 0", got)
	}
	if got := counterValue(t, m.messages.WithLabelValues("error")); got != 2 {
		t.Fatalf("messages{result=error} = %v, want 2", got)
	}
}

func TestMetricsRegistersAgainstCustomRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	newMetrics(reg, "test", Receiver)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	if len(families) == 0 {
		t.Fatalf("no metric families registered against the custom registerer")
	}
}

func TestMetricsToleratesNilRegisterer(t *testing.T) {
	m := newMetrics(nil, "test", Receiver)
	m.recvOK(1)
	m.setQueueDepth(3)
}
