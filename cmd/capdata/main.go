// capdata CLI - inspect and convert marshalled capability data
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/endojs/endo-sub013/manifest"
	"github.com/endojs/endo-sub013/marshal"
	"github.com/endojs/endo-sub013/passstyle"
	"github.com/endojs/endo-sub013/remote"

	_ "github.com/tliron/commonlog/simple"
)

const logName = "endo.capdata"

func main() {
	verbose := flag.Int("v", 0, "Extra log verbosity on top of endo.toml")
	dir := flag.String("C", ".", "Directory to search upwards for endo.toml")
	indent := flag.Bool("indent", false, "Indent justin output")
	policyName := flag.String("cycles", "", "Cycle policy for check: forbidCycles, allowCycles or warnOfCycles (default from endo.toml)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: capdata [options] <command> [file]\n\n")
		fmt.Fprintf(os.Stderr, "Reads CapData from file, or stdin when file is omitted or \"-\".\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  justin [file]     Render CapData JSON as a justin expression\n")
		fmt.Fprintf(os.Stderr, "  tocbor [file]     Convert CapData JSON to canonical CBOR\n")
		fmt.Fprintf(os.Stderr, "  fromcbor [file]   Convert CBOR CapData to JSON\n")
		fmt.Fprintf(os.Stderr, "  check [file]      Unserialize, report the pass style and re-serialize\n")
		fmt.Fprintf(os.Stderr, "  peers             Show crossed-hello bias for configured peers\n")
		fmt.Fprintf(os.Stderr, "  init              Write a default endo.toml in the -C directory\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		m = manifest.Default()
	}
	commonlog.Configure(m.Log.Verbosity+*verbose, m.LogPath())

	if err := dispatch(args, m, options{indent: *indent, policy: *policyName, dir: *dir}, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	indent bool
	policy string
	dir    string
}

var errUsage = errors.New("usage: capdata [options] <justin|tocbor|fromcbor|check|peers|init> [file]")

func dispatch(args []string, m *manifest.Manifest, opts options, stdin io.Reader, stdout io.Writer) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "justin", "tocbor", "fromcbor", "check":
		input, err := readInput(rest, stdin)
		if err != nil {
			return err
		}
		switch cmd {
		case "justin":
			return handleJustin(input, opts.indent, stdout)
		case "tocbor":
			return handleToCBOR(input, stdout)
		case "fromcbor":
			return handleFromCBOR(input, stdout)
		default:
			policy, err := resolvePolicy(opts.policy, m)
			if err != nil {
				return err
			}
			return handleCheck(input, policy, stdout)
		}
	case "peers":
		return handlePeers(m, stdout)
	case "init":
		fresh := manifest.Default()
		if err := fresh.Save(opts.dir); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s for node %s\n", manifest.FileName, fresh.Node.ID)
		return nil
	}
	return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
}

func readInput(args []string, stdin io.Reader) ([]byte, error) {
	if len(args) > 1 {
		return nil, errUsage
	}
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(args[0])
}

func resolvePolicy(name string, m *manifest.Manifest) (marshal.CyclePolicy, error) {
	if name != "" {
		return marshal.ParseCyclePolicy(name)
	}
	return m.CyclePolicy()
}

func handleJustin(input []byte, indent bool, out io.Writer) error {
	data, err := marshal.ParseCapData(input)
	if err != nil {
		return err
	}
	src, err := marshal.DecodeToJustin(data, indent)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, src)
	return err
}

func handleToCBOR(input []byte, out io.Writer) error {
	data, err := marshal.ParseCapData(input)
	if err != nil {
		return err
	}
	enc, err := marshal.EncodeCapDataCBOR(data)
	if err != nil {
		return err
	}
	_, err = out.Write(enc)
	return err
}

func handleFromCBOR(input []byte, out io.Writer) error {
	data, err := marshal.DecodeCapDataCBOR(input)
	if err != nil {
		return err
	}
	enc, err := data.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", enc)
	return err
}

// handleCheck revives every slot as a fresh presence so the body can be
// classified and re-serialized without a live connection.
func handleCheck(input []byte, policy marshal.CyclePolicy, out io.Writer) error {
	data, err := marshal.ParseCapData(input)
	if err != nil {
		return err
	}

	registry := passstyle.NewRegistry()
	slotOf := make(map[*passstyle.Record]string)
	presence := func(slot, iface string) (any, error) {
		if iface == "" {
			iface = "Remotable"
		}
		p, err := registry.Register(passstyle.NewRecord(), iface)
		if err != nil {
			return nil, err
		}
		slotOf[p] = slot
		return p, nil
	}
	toSlot := func(v any) (string, error) {
		if p, ok := v.(*passstyle.Record); ok {
			if slot, ok := slotOf[p]; ok {
				return slot, nil
			}
		}
		return "", fmt.Errorf("%w: %T", marshal.ErrUnknownSlot, v)
	}

	mm := marshal.New(
		marshal.WithRegistry(registry),
		marshal.WithSlotToVal(presence),
		marshal.WithValToSlot(toSlot),
	)
	v, err := mm.Unserialize(data, policy)
	if err != nil {
		return err
	}
	style, err := registry.PassStyleOf(v)
	if err != nil {
		return err
	}
	again, err := mm.Serialize(v)
	if err != nil {
		return err
	}
	enc, err := again.MarshalJSON()
	if err != nil {
		return err
	}
	commonlog.GetLogger(logName).Debugf("checked %d bytes with %s", len(input), policy)
	_, err = fmt.Fprintf(out, "passStyle: %s\nslots: %d\ncanonical: %s\n", style, len(data.Slots), enc)
	return err
}

func handlePeers(m *manifest.Manifest, out io.Writer) error {
	p := remote.NewProvider(m.Node.ID)
	for _, id := range m.Node.Peers {
		c, err := p.Provide(id)
		if err != nil {
			commonlog.GetLogger(logName).Warningf("skipping peer: %s", err)
			continue
		}
		bias := "accept"
		if c.ConnectBias() {
			bias = "connect"
		}
		fmt.Fprintf(out, "%s\t%s-bias\t%s\n", c.RemoteID(), bias, c.State())
	}
	return nil
}
