package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/instrument_panel/internal/imu"
	"github.com/relabs-tech/instrument_panel/internal/sensors"
)

func newTestWeb(t *testing.T, src *fakeSource, interval time.Duration) (*webServer, *httptest.Server) {
	t.Helper()
	ws := newWebServer(newTestControls(t, src), interval)
	srv := httptest.NewServer(ws.handler())
	t.Cleanup(func() {
		_ = ws.Close()
		srv.Close()
	})
	return ws, srv
}

func doRequest(t *testing.T, method, url, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, b
}

func TestWeb_AttrsSnapshot(t *testing.T) {
	src := &fakeSource{sample: imu.Sample{Ax: 12, Gz: -7}, temp: 24}
	_, srv := newTestWeb(t, src, time.Hour)

	code, body := doRequest(t, http.MethodGet, srv.URL+"/api/attrs", "")
	if code != http.StatusOK {
		t.Fatalf("status=%d body=%s", code, body)
	}
	var snap map[string]int
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap["accel_x"] != 12 || snap["gyro_z"] != -7 || snap["temp"] != 24 || snap["mode"] != 0 {
		t.Fatalf("snapshot=%v", snap)
	}
	if len(snap) != 8 {
		t.Fatalf("len=%d want 8", len(snap))
	}
}

func TestWeb_AttrRead(t *testing.T) {
	src := &fakeSource{sample: imu.Sample{Gy: 321}}
	_, srv := newTestWeb(t, src, time.Hour)

	code, body := doRequest(t, http.MethodGet, srv.URL+"/api/attrs/gyro_y", "")
	if code != http.StatusOK {
		t.Fatalf("status=%d body=%s", code, body)
	}
	var v attrValue
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v != (attrValue{Name: "gyro_y", Value: 321}) {
		t.Fatalf("value=%+v", v)
	}

	if code, _ := doRequest(t, http.MethodGet, srv.URL+"/api/attrs/nope", ""); code != http.StatusNotFound {
		t.Fatalf("unknown attr status=%d want 404", code)
	}

	src.setErr(fmt.Errorf("read: %w", sensors.ErrIO))
	if code, _ := doRequest(t, http.MethodGet, srv.URL+"/api/attrs/gyro_y", ""); code != http.StatusServiceUnavailable {
		t.Fatalf("sensor failure status=%d want 503", code)
	}
}

func TestWeb_ModeWrites(t *testing.T) {
	_, srv := newTestWeb(t, &fakeSource{}, time.Hour)
	url := srv.URL + "/api/attrs/mode"

	// A body past the size limit must not be cut down to a valid prefix.
	oversized := "1" + strings.Repeat(" ", maxAttrBody-1) + "9"
	if code, body := doRequest(t, http.MethodPut, url, oversized); code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized write: status=%d body=%s", code, body)
	}
	if code, body := doRequest(t, http.MethodGet, url, ""); code != http.StatusOK || !strings.Contains(string(body), `"value":0`) {
		t.Fatalf("mode after oversized write: status=%d body=%s", code, body)
	}

	steps := []struct {
		name string
		attr string
		body string
		want int
	}{
		{name: "Switch", attr: "mode", body: "1\n", want: http.StatusOK},
		{name: "SameTargetAtSizeLimit", attr: "mode", body: "1" + strings.Repeat(" ", maxAttrBody-1), want: http.StatusOK},
		{name: "SameTargetIsNoOp", attr: "mode", body: "1", want: http.StatusOK},
		{name: "PendingSwitchIsBusy", attr: "mode", body: "2", want: http.StatusConflict},
		{name: "OutOfRange", attr: "mode", body: "99", want: http.StatusForbidden},
		{name: "Negative", attr: "mode", body: "-1", want: http.StatusForbidden},
		{name: "NotAnInteger", attr: "mode", body: "abc", want: http.StatusBadRequest},
		{name: "ReadOnly", attr: "temp", body: "3", want: http.StatusForbidden},
		{name: "Unknown", attr: "nope", body: "3", want: http.StatusNotFound},
	}
	for _, st := range steps {
		u := url
		if st.attr != "mode" {
			u = srv.URL + "/api/attrs/" + st.attr
		}
		code, body := doRequest(t, http.MethodPut, u, st.body)
		if code != st.want {
			t.Fatalf("%s: status=%d want %d body=%s", st.name, code, st.want, body)
		}
	}

	code, body := doRequest(t, http.MethodGet, url, "")
	if code != http.StatusOK || !strings.Contains(string(body), `"value":1`) {
		t.Fatalf("mode after writes: status=%d body=%s", code, body)
	}
}

func TestWeb_Modes(t *testing.T) {
	_, srv := newTestWeb(t, &fakeSource{}, time.Hour)

	code, body := doRequest(t, http.MethodGet, srv.URL+"/api/modes", "")
	if code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
	var list []modeInfo
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list) != 6 {
		t.Fatalf("len=%d want 6", len(list))
	}
	if !list[0].Active || list[0].Pending || list[0].Name != "inclinometer" || list[0].CycleMS != 20 {
		t.Fatalf("first=%+v", list[0])
	}
	last := list[len(list)-1]
	if !last.Hidden || last.Name != "scan" || last.Active {
		t.Fatalf("last=%+v", last)
	}
}

func TestStatusFor(t *testing.T) {
	if got := statusFor(fmt.Errorf("x: %w", sensors.ErrNotFound)); got != http.StatusServiceUnavailable {
		t.Fatalf("ErrNotFound -> %d", got)
	}
	if got := statusFor(fmt.Errorf("boom")); got != http.StatusInternalServerError {
		t.Fatalf("plain error -> %d", got)
	}
}

func dialWS(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestWeb_TelemetrySetMode(t *testing.T) {
	_, srv := newTestWeb(t, &fakeSource{}, time.Hour)
	conn := dialWS(t, srv, "/ws/telemetry")

	var f telemetryFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Type != "telemetry" || f.Mode != 0 || f.ModeName != "inclinometer" || f.Switching {
		t.Fatalf("first frame=%+v", f)
	}

	if err := conn.WriteJSON(telemetryCommand{Action: "set_mode", Index: 2}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Type != "ack" || f.Mode != 2 || !f.Switching {
		t.Fatalf("ack=%+v", f)
	}

	if err := conn.WriteJSON(telemetryCommand{Action: "set_mode", Index: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f = telemetryFrame{}
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Type != "error" || !strings.HasPrefix(f.Message, "busy:") {
		t.Fatalf("busy reply=%+v", f)
	}

	if err := conn.WriteJSON(telemetryCommand{Action: "reboot"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	f = telemetryFrame{}
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}
	if f.Type != "error" || f.Message != "unknown action reboot" {
		t.Fatalf("unknown action reply=%+v", f)
	}
}

func TestWeb_TelemetryStopsOnClose(t *testing.T) {
	ws, srv := newTestWeb(t, &fakeSource{}, time.Hour)
	conn := dialWS(t, srv, "/ws/telemetry")

	var f telemetryFrame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read: %v", err)
	}

	closed := make(chan struct{})
	go func() {
		_ = ws.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not return with a client connected")
	}
	if err := conn.ReadJSON(&f); err == nil {
		t.Fatal("expected the socket to be closed")
	}
}

func TestWeb_RefusesSocketsAfterClose(t *testing.T) {
	ws, srv := newTestWeb(t, &fakeSource{}, time.Hour)
	if err := ws.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	for _, path := range []string{"/ws/telemetry", "/ws/calibrate"} {
		u := "ws" + strings.TrimPrefix(srv.URL, "http") + path
		conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
		if err == nil {
			conn.Close()
			t.Fatalf("%s: connected after Close", path)
		}
		if resp == nil || resp.StatusCode != http.StatusServiceUnavailable {
			t.Fatalf("%s: err=%v resp=%v want 503", path, err, resp)
		}
		resp.Body.Close()
	}
}

func TestWeb_Calibrate(t *testing.T) {
	old := calibrationSampleGap
	calibrationSampleGap = 0
	t.Cleanup(func() { calibrationSampleGap = old })

	src := &fakeSource{sample: imu.Sample{Ax: 100, Ay: -50, Az: 16000, Gx: 3, Gy: -4, Gz: 5}}
	_, srv := newTestWeb(t, src, time.Hour)
	conn := dialWS(t, srv, "/ws/calibrate")

	if err := conn.WriteJSON(calibrationRequest{Action: "start", Samples: 10}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var progress int
	var resp calibrationResponse
	for {
		resp = calibrationResponse{}
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read: %v", err)
		}
		if resp.Type != "progress" {
			break
		}
		progress++
	}
	if progress != 10 {
		t.Fatalf("progress frames=%d want 10", progress)
	}
	if resp.Type != "complete" || resp.Offsets == nil {
		t.Fatalf("final=%+v", resp)
	}
	want := imu.Offsets{
		Accel: imu.Triplet{X: -100, Y: 50, Z: 384},
		Gyro:  imu.Triplet{X: -3, Y: 4, Z: -5},
	}
	if *resp.Offsets != want {
		t.Fatalf("offsets=%+v want %+v", *resp.Offsets, want)
	}
	if !strings.HasPrefix(resp.YAML, "calibration:\n") {
		t.Fatalf("yaml=%q", resp.YAML)
	}

	if err := conn.WriteJSON(calibrationRequest{Action: "start", Samples: maxCalibrationSamples + 1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp = calibrationResponse{}
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "error" {
		t.Fatalf("oversized run=%+v", resp)
	}
}

func TestWeb_CalibrateSensorFailure(t *testing.T) {
	old := calibrationSampleGap
	calibrationSampleGap = 0
	t.Cleanup(func() { calibrationSampleGap = old })

	src := &fakeSource{err: sensors.ErrIO}
	_, srv := newTestWeb(t, src, time.Hour)
	conn := dialWS(t, srv, "/ws/calibrate")

	if err := conn.WriteJSON(calibrationRequest{Action: "start"}); err != nil {
		t.Fatalf("write: %v", err)
	}
	var resp calibrationResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read: %v", err)
	}
	if resp.Type != "error" || !strings.Contains(resp.Message, "sample 0") {
		t.Fatalf("resp=%+v", resp)
	}
}
