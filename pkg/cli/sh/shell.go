// Package sh provides an interactive shell to inspect packet captures
// against the configured packet types.
package sh

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/syncframe/pkg/config"
	"github.com/robotalks/syncframe/pkg/framing"
)

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	OutputJSON  bool

	Shell    *ishell.Shell
	Registry *framing.Registry
}

const shellKey = "$shell"

var (
	// flags

	evalOnly   bool
	outputJSON bool

	// commands
	commands = []*ishell.Cmd{
		&TypesCmd,
		&MatchCmd,
		&DecodeCmd,
		&FrameCmd,
		&EncodeCmd,
	}
)

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print output in JSON.")
}

// New creates a new shell.
func New(reg *framing.Registry) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		OutputJSON:  outputJSON,

		Shell:    ishell.New(),
		Registry: reg,
	}
	s.Shell.Set(shellKey, s)
	s.Shell.SetPrompt("syncframe > ")
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Run runs the shell.
func (s *Shell) Run(args ...string) {
	if len(args) > 0 {
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
		return
	}
	if s.Interactive {
		s.Shell.Run()
		return
	}
	log.Fatalln("command expected")
}

type recordJSON struct {
	Type   string            `json:"type"`
	Values map[string]uint64 `json:"values"`
}

func (s *Shell) printRecords(c *ishell.Context, records []*framing.Record) {
	if !s.OutputJSON {
		for _, rec := range records {
			c.Printf("[%s] %s\n", rec.Type, rec)
		}
		return
	}
	out := make([]recordJSON, len(records))
	for n, rec := range records {
		out[n] = recordJSON{Type: rec.Type, Values: make(map[string]uint64, len(rec.Fields))}
		for i, f := range rec.Fields {
			out[n].Values[f.Name] = rec.Values[i]
		}
	}
	data, err := json.Marshal(out)
	if err != nil {
		c.Err(err)
		return
	}
	c.Println(string(data))
}

// FormatType prints a packet type for display.
func FormatType(t *framing.PacketType) string {
	fields := make([]string, len(t.Layout.Fields))
	for n, f := range t.Layout.Fields {
		fields[n] = fmt.Sprintf("%s:%d", f.Name, f.Width)
	}
	return fmt.Sprintf("%s marker=%s payload=%d fields=%s",
		t.Name, t.Marker, t.Layout.Width(), strings.Join(fields, ","))
}

func packetTypeArg(c *ishell.Context) (*framing.PacketType, bool) {
	if len(c.Args) < 1 {
		c.Err(fmt.Errorf("TYPE required"))
		return nil, false
	}
	t := ShellFrom(c).Registry.Lookup(c.Args[0])
	if t == nil {
		c.Err(fmt.Errorf("unknown packet type %q", c.Args[0]))
		return nil, false
	}
	return t, true
}

var (
	// TypesCmd lists packet types.
	TypesCmd = ishell.Cmd{
		Name:    "types",
		Aliases: []string{"t"},
		Help:    "list packet types",
		Func: func(c *ishell.Context) {
			for _, t := range ShellFrom(c).Registry.Types() {
				c.Println(FormatType(t))
			}
		},
	}

	// MatchCmd tests a marker window.
	MatchCmd = ishell.Cmd{
		Name:    "match",
		Aliases: []string{"m"},
		Help:    "HEX",
		Func: func(c *ishell.Context) {
			window, err := ParseHex(c.Args...)
			if err != nil {
				c.Err(err)
				return
			}
			t, err := ShellFrom(c).Registry.Match(window)
			if err != nil {
				c.Err(err)
				return
			}
			if t == nil {
				c.Println("no match")
				return
			}
			c.Println(t.Name)
		},
	}

	// DecodeCmd decodes a payload.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"d"},
		Help:    "TYPE HEX",
		Func: func(c *ishell.Context) {
			t, ok := packetTypeArg(c)
			if !ok {
				return
			}
			payload, err := ParseHex(c.Args[1:]...)
			if err != nil {
				c.Err(err)
				return
			}
			rec, err := t.Decode(payload)
			if err != nil {
				c.Err(err)
				return
			}
			ShellFrom(c).printRecords(c, []*framing.Record{rec})
		},
	}

	// FrameCmd frames a captured byte stream.
	FrameCmd = ishell.Cmd{
		Name:    "frame",
		Aliases: []string{"f"},
		Help:    "HEX",
		Func: func(c *ishell.Context) {
			data, err := ParseHex(c.Args...)
			if err != nil {
				c.Err(err)
				return
			}
			s := ShellFrom(c)
			result, err := Frame(s.Registry, data)
			if err != nil {
				c.Err(err)
				return
			}
			s.printRecords(c, result.Records)
			if !s.OutputJSON {
				c.Printf("%d packets, %d windows discarded, %d trailing bytes\n",
					len(result.Records), result.Discarded, result.Trailing)
			}
		},
	}

	// EncodeCmd encodes a packet.
	EncodeCmd = ishell.Cmd{
		Name:    "encode",
		Aliases: []string{"e"},
		Help:    "TYPE VALUE...",
		Func: func(c *ishell.Context) {
			t, ok := packetTypeArg(c)
			if !ok {
				return
			}
			values, err := ParseValues(c.Args[1:]...)
			if err != nil {
				c.Err(err)
				return
			}
			b, err := t.Encode(values...)
			if err != nil {
				c.Err(err)
				return
			}
			c.Printf("% X\n", b)
		},
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	conf, err := config.Load()
	if err != nil {
		log.Fatalln(err)
	}
	reg, err := conf.Registry()
	if err != nil {
		log.Fatalln(err)
	}
	New(reg).Run(flag.Args()...)
}
