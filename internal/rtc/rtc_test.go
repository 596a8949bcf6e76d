package rtc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/routetable"
	"github.com/o-ran-sc/ric-plt-lib-rmr-sub001/internal/telemetry"
)

func TestIsActiveModeFromRTGSvc(t *testing.T) {
	os.Setenv(EnvRTGSvc, "rtmgr:4561")
	defer os.Unsetenv(EnvRTGSvc)
	c := New(routetable.NewActive(), telemetry.New())
	if !c.IsActiveMode() {
		t.Fatal("expected active mode when RMR_RTG_SVC has a host:port")
	}
}

func TestIsPassiveModeWhenOnlyPortGiven(t *testing.T) {
	os.Unsetenv(EnvCtlPort)
	os.Setenv(EnvRTGSvc, "4561")
	defer os.Unsetenv(EnvRTGSvc)
	c := New(routetable.NewActive(), telemetry.New())
	if c.IsActiveMode() {
		t.Fatal("expected passive mode when RMR_RTG_SVC is port-only and RMR_CTL_PORT unset")
	}
}

func TestReqFreqClampedToDefaultWhenInvalid(t *testing.T) {
	os.Setenv(EnvReqFreq, "not-a-number")
	defer os.Unsetenv(EnvReqFreq)
	c := New(routetable.NewActive(), telemetry.New())
	if c.reqFreq.Seconds() != defaultReqFreqSeconds {
		t.Fatalf("expected default req freq, got %v", c.reqFreq)
	}
}

func TestLoadSeedInstallsTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.rt")
	content := "newrt | start\nmse | 10 | -1 | h1:4001\nnewrt | end | 1\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write seed: %v", err)
	}

	os.Setenv(EnvSeedRT, path)
	defer os.Unsetenv(EnvSeedRT)

	active := routetable.NewActive()
	c := New(active, telemetry.New())
	if err := c.LoadSeed(); err != nil {
		t.Fatalf("load seed: %v", err)
	}

	cur := active.Current()
	defer active.Release(cur)
	if cur.GetRTE(10, -1, true) == nil {
		t.Fatal("expected seeded route to be installed")
	}
}

func TestVerbosityReadsDigitFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vctl")
	os.WriteFile(path, []byte("3\n"), 0o644)
	if v := Verbosity(path); v != 3 {
		t.Fatalf("expected verbosity 3, got %d", v)
	}
}

func TestVerbosityZeroWhenUnset(t *testing.T) {
	if v := Verbosity(""); v != 0 {
		t.Fatalf("expected 0 for unset path, got %d", v)
	}
}
