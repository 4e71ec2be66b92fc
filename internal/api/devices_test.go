package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/saltline/steward-core/internal/device"
)

func TestCreateAndGetDevice(t *testing.T) {
	h := newTestHarness(t)

	body := strings.NewReader(`{"id":"btn-01","name":"Saloon Button","kind":"button"}`)
	rec := h.do(t, http.MethodPost, "/api/v1/devices/", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201: %s", rec.Code, rec.Body)
	}

	rec = h.do(t, http.MethodGet, "/api/v1/devices/btn-01", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, want 200", rec.Code)
	}

	var dev device.Device
	if err := json.Unmarshal(rec.Body.Bytes(), &dev); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if dev.Name != "Saloon Button" {
		t.Errorf("name = %q, want Saloon Button", dev.Name)
	}
}

func TestCreateDeviceValidation(t *testing.T) {
	h := newTestHarness(t)

	noID := h.do(t, http.MethodPost, "/api/v1/devices/", strings.NewReader(`{"kind":"button"}`))
	if noID.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d, want 400", noID.Code)
	}

	badKind := h.do(t, http.MethodPost, "/api/v1/devices/", strings.NewReader(`{"id":"x","kind":"toaster"}`))
	if badKind.Code != http.StatusBadRequest {
		t.Errorf("bad kind status = %d, want 400", badKind.Code)
	}
}

func TestCreateDuplicateDeviceConflicts(t *testing.T) {
	h := newTestHarness(t)

	body := `{"id":"btn-01","kind":"button"}`
	first := h.do(t, http.MethodPost, "/api/v1/devices/", strings.NewReader(body))
	if first.Code != http.StatusCreated {
		t.Fatalf("first create status = %d, want 201", first.Code)
	}
	second := h.do(t, http.MethodPost, "/api/v1/devices/", strings.NewReader(body))
	if second.Code != http.StatusConflict {
		t.Errorf("duplicate create status = %d, want 409", second.Code)
	}
}

func TestListDevicesKindFilter(t *testing.T) {
	h := newTestHarness(t)
	h.deviceRepo.devices["btn-01"] = &device.Device{ID: "btn-01", Kind: device.KindButton}
	h.deviceRepo.devices["wear-01"] = &device.Device{ID: "wear-01", Kind: device.KindWearable}

	rec := h.do(t, http.MethodGet, "/api/v1/devices/?kind=wearable", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Devices []device.Device `json:"devices"`
		Count   int             `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Count != 1 || resp.Devices[0].ID != "wear-01" {
		t.Errorf("filtered devices = %+v, want only wear-01", resp)
	}

	badKind := h.do(t, http.MethodGet, "/api/v1/devices/?kind=toaster", nil)
	if badKind.Code != http.StatusBadRequest {
		t.Errorf("bad kind filter status = %d, want 400", badKind.Code)
	}
}

func TestDeleteDevice(t *testing.T) {
	h := newTestHarness(t)
	h.deviceRepo.devices["btn-01"] = &device.Device{ID: "btn-01", Kind: device.KindButton}

	rec := h.do(t, http.MethodDelete, "/api/v1/devices/btn-01", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}

	missing := h.do(t, http.MethodDelete, "/api/v1/devices/btn-01", nil)
	if missing.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", missing.Code)
	}
}

func TestPairingEndpoints(t *testing.T) {
	h := newTestHarness(t)

	rec := h.do(t, http.MethodPost, "/api/v1/devices/btn-09/pairing", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("begin pairing status = %d, want 200", rec.Code)
	}
	if !h.server.pairing.Active("btn-09") {
		t.Error("pairing window should be open")
	}

	rec = h.do(t, http.MethodDelete, "/api/v1/devices/btn-09/pairing", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel pairing status = %d, want 200", rec.Code)
	}
	if h.server.pairing.Active("btn-09") {
		t.Error("pairing window should be closed")
	}
}

func TestBindLocationAndCrew(t *testing.T) {
	h := newTestHarness(t)
	h.deviceRepo.devices["wear-01"] = &device.Device{ID: "wear-01", Kind: device.KindWearable}

	rec := h.do(t, http.MethodPut, "/api/v1/devices/wear-01/crew",
		strings.NewReader(`{"crew_member_id":"crew-1"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("bind crew status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if got := h.deviceRepo.devices["wear-01"].CrewMemberID; got == nil || *got != "crew-1" {
		t.Errorf("crew binding not persisted")
	}

	// Unbind with null.
	rec = h.do(t, http.MethodPut, "/api/v1/devices/wear-01/crew",
		strings.NewReader(`{"crew_member_id":null}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("unbind crew status = %d, want 200", rec.Code)
	}
	if h.deviceRepo.devices["wear-01"].CrewMemberID != nil {
		t.Errorf("crew binding should be cleared")
	}

	missing := h.do(t, http.MethodPut, "/api/v1/devices/nope/location",
		strings.NewReader(`{"location_id":"cabin-3"}`))
	if missing.Code != http.StatusNotFound {
		t.Errorf("bind on unknown device = %d, want 404", missing.Code)
	}
}
