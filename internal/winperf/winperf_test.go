package winperf

import "testing"

func TestUnavailableSourcesReturnErrors(t *testing.T) {
	var host Unavailable
	if _, err := host.CPUTotalPct(); err == nil {
		t.Error("expected an error from CPUTotalPct")
	}
	if _, err := host.RAMUsedPct(); err == nil {
		t.Error("expected an error from RAMUsedPct")
	}

	var ws UnavailableWorkingSet
	if _, err := ws.WorkingSetPct(42); err == nil {
		t.Error("expected an error from WorkingSetPct")
	}
}
