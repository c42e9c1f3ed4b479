package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/endojs/endo-sub013/manifest"
	"github.com/endojs/endo-sub013/marshal"
)

const sample = `{"body":"{\"a\":[1,{\"@qclass\":\"bigint\",\"digits\":\"10\"}],\"b\":{\"@qclass\":\"slot\",\"iface\":\"Alleged: Counter\",\"index\":0}}","slots":["o+1"]}`

func run(t *testing.T, m *manifest.Manifest, opts options, input string, args ...string) (string, error) {
	t.Helper()
	if m == nil {
		m = &manifest.Manifest{Node: manifest.Node{ID: "alice"}}
	}
	var out bytes.Buffer
	err := dispatch(args, m, opts, strings.NewReader(input), &out)
	return out.String(), err
}

func TestJustinCommand(t *testing.T) {
	out, err := run(t, nil, options{}, sample, "justin")
	if err != nil {
		t.Fatalf("justin: %v", err)
	}
	want := `{a:[1,10n],b:getSlotVal(0,"Alleged: Counter")}` + "\n"
	if out != want {
		t.Errorf("justin output = %q, want %q", out, want)
	}
}

func TestCBORRoundTripCommands(t *testing.T) {
	enc, err := run(t, nil, options{}, sample, "tocbor")
	if err != nil {
		t.Fatalf("tocbor: %v", err)
	}
	out, err := run(t, nil, options{}, enc, "fromcbor")
	if err != nil {
		t.Fatalf("fromcbor: %v", err)
	}
	if strings.TrimSpace(out) != sample {
		t.Errorf("fromcbor = %s, want %s", out, sample)
	}
}

func TestCheckCommand(t *testing.T) {
	out, err := run(t, nil, options{}, sample, "check")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, "passStyle: copyRecord") {
		t.Errorf("check output missing pass style:\n%s", out)
	}
	if !strings.Contains(out, "canonical: "+sample) {
		t.Errorf("check should re-serialize to the same CapData:\n%s", out)
	}
}

func TestCheckHonoursCyclePolicy(t *testing.T) {
	cyclic := `{"body":"[{\"@qclass\":\"ibid\",\"index\":0}]","slots":[]}`

	if _, err := run(t, nil, options{}, cyclic, "check"); !errors.Is(err, marshal.ErrCycle) {
		t.Errorf("default policy err = %v, want ErrCycle", err)
	}

	m := &manifest.Manifest{Marshal: manifest.MarshalConfig{CyclePolicy: "allowCycles"}}
	if _, err := run(t, m, options{}, cyclic, "check"); err != nil {
		t.Errorf("manifest allowCycles: %v", err)
	}
	if _, err := run(t, m, options{policy: "forbidCycles"}, cyclic, "check"); !errors.Is(err, marshal.ErrCycle) {
		t.Errorf("flag should override manifest, err = %v", err)
	}
}

func TestCheckRejectsMalformed(t *testing.T) {
	if _, err := run(t, nil, options{}, `{"body":"[1,"}`, "check"); !errors.Is(err, marshal.ErrMalformedCapData) {
		t.Errorf("err = %v, want ErrMalformedCapData", err)
	}
}

func TestPeersCommand(t *testing.T) {
	m := &manifest.Manifest{Node: manifest.Node{ID: "bob", Peers: []string{"alice", "bob", "carol"}}}
	out, err := run(t, m, options{}, "", "peers")
	if err != nil {
		t.Fatalf("peers: %v", err)
	}
	want := "alice\tconnect-bias\tstart\ncarol\taccept-bias\tstart\n"
	if out != want {
		t.Errorf("peers output = %q, want %q", out, want)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, nil, options{dir: dir}, "", "init")
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !strings.HasPrefix(out, "wrote endo.toml") {
		t.Errorf("init output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, manifest.FileName)); err != nil {
		t.Errorf("endo.toml not written: %v", err)
	}
	if _, err := run(t, nil, options{dir: dir}, "", "init"); !errors.Is(err, os.ErrExist) {
		t.Errorf("second init err = %v, want ErrExist", err)
	}
}

func TestUnknownCommand(t *testing.T) {
	if _, err := run(t, nil, options{}, "", "frobnicate"); !errors.Is(err, errUsage) {
		t.Errorf("err = %v, want usage error", err)
	}
}
