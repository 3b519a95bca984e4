// Locus - WiFi Geolocation Resolution Cache Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/locus

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/locus/internal/models"
)

func TestValidateStructPasses(t *testing.T) {
	scan := models.ScanRequest{
		APScanData: []models.AccessPoint{{BSSID: "aa:bb:cc:dd:ee:01"}},
	}
	if err := ValidateStruct(&scan); err != nil {
		t.Errorf("Expected valid scan to pass, got %v", err)
	}
}

func TestValidateStructMissingScanData(t *testing.T) {
	err := ValidateStruct(&models.ScanRequest{})
	if err == nil {
		t.Fatal("Expected error for missing apscan_data")
	}
	if len(err.Errors()) != 1 {
		t.Errorf("Expected 1 field error, got %d", len(err.Errors()))
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("Expected required message, got %q", err.Error())
	}
}

func TestValidateStructEmptyScanData(t *testing.T) {
	scan := models.ScanRequest{APScanData: []models.AccessPoint{}}
	if err := ValidateStruct(&scan); err == nil {
		t.Error("Expected error for empty apscan_data")
	}
}

func TestValidateStructMissingBSSID(t *testing.T) {
	scan := models.ScanRequest{
		APScanData: []models.AccessPoint{{SSID: "some-network"}},
	}
	err := ValidateStruct(&scan)
	if err == nil {
		t.Fatal("Expected error for access point without bssid")
	}
	if err.Errors()[0].Field() != "BSSID" {
		t.Errorf("Expected BSSID field error, got %q", err.Errors()[0].Field())
	}
}

func TestGetValidatorSingleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator should return the same instance")
	}
}
