package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"golang.org/x/net/bpf"

	"firestige.xyz/bytescope/internal/metrics"
)

const snapLen = 262144

// PcapConfig configures a PcapReplay.
type PcapConfig struct {
	File string
	Port uint16 // 0 = every TCP segment
	Loop bool
}

// PcapReplay reads a capture file and emits the payload of each TCP segment
// as one chunk, in file order.
type PcapReplay struct {
	cfg    PcapConfig
	filter *bpf.VM
}

// NewPcapReplay prepares a replay source. The port filter is assembled into
// a classic BPF program and run in-process for Ethernet captures.
func NewPcapReplay(cfg PcapConfig) (*PcapReplay, error) {
	if cfg.File == "" {
		return nil, errors.New("pcap: file is required")
	}
	p := &PcapReplay{cfg: cfg}
	if cfg.Port != 0 {
		vm, err := bpf.NewVM(tcpPortFilter(cfg.Port))
		if err != nil {
			return nil, fmt.Errorf("pcap: build port filter: %w", err)
		}
		p.filter = vm
	}
	return p, nil
}

func (p *PcapReplay) Name() string {
	return "pcap"
}

// Run replays the file once, or until ctx is cancelled when Loop is set.
func (p *PcapReplay) Run(ctx context.Context, out chan<- []byte) error {
	for {
		n, err := p.replay(ctx, out)
		if err != nil {
			return err
		}
		slog.Info("pcap replay finished", "file", p.cfg.File, "chunks", n)
		if !p.cfg.Loop {
			return nil
		}
		if n == 0 {
			return fmt.Errorf("pcap: %s has no matching payload to loop over", p.cfg.File)
		}
	}
}

func (p *PcapReplay) replay(ctx context.Context, out chan<- []byte) (int, error) {
	f, err := os.Open(p.cfg.File)
	if err != nil {
		return 0, fmt.Errorf("pcap: open %s: %w", p.cfg.File, err)
	}
	defer f.Close()

	r, err := pcapgo.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("pcap: read header: %w", err)
	}
	linkType := r.LinkType()
	slog.Info("pcap replay started", "file", p.cfg.File, "link_type", linkType.String(), "port", p.cfg.Port)

	emitted := 0
	for {
		if err := ctx.Err(); err != nil {
			return emitted, err
		}
		data, _, err := r.ReadPacketData()
		if errors.Is(err, io.EOF) {
			return emitted, nil
		}
		if err != nil {
			return emitted, fmt.Errorf("pcap: read packet: %w", err)
		}

		payload, ok := p.payload(data, linkType)
		if !ok {
			continue
		}
		metrics.SourceBytesTotal.WithLabelValues(p.Name()).Add(float64(len(payload)))
		metrics.SourceChunksTotal.WithLabelValues(p.Name()).Inc()
		if err := emit(ctx, out, payload); err != nil {
			return emitted, err
		}
		emitted++
	}
}

// payload returns a copy of the TCP payload of one packet, if it passes the
// port filter and carries any bytes.
func (p *PcapReplay) payload(data []byte, linkType layers.LinkType) ([]byte, bool) {
	if p.filter != nil && linkType == layers.LinkTypeEthernet {
		n, err := p.filter.Run(data)
		if err != nil || n == 0 {
			return nil, false
		}
	}

	pkt := gopacket.NewPacket(data, linkType, gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	tcpLayer := pkt.Layer(layers.LayerTypeTCP)
	if tcpLayer == nil {
		return nil, false
	}
	tcp := tcpLayer.(*layers.TCP)
	if p.cfg.Port != 0 && linkType != layers.LinkTypeEthernet &&
		uint16(tcp.SrcPort) != p.cfg.Port && uint16(tcp.DstPort) != p.cfg.Port {
		return nil, false
	}
	if len(tcp.Payload) == 0 {
		return nil, false
	}
	out := make([]byte, len(tcp.Payload))
	copy(out, tcp.Payload)
	return out, true
}

// tcpPortFilter is the classic BPF program for "ip and tcp port <port>" on
// Ethernet frames. Fragments other than the first are rejected.
func tcpPortFilter(port uint16) []bpf.Instruction {
	p := uint32(port)
	return []bpf.Instruction{
		bpf.LoadAbsolute{Off: 12, Size: 2},                          // 0: ethertype
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 0x0800, SkipFalse: 10}, // 1: IPv4
		bpf.LoadAbsolute{Off: 23, Size: 1},                          // 2: protocol
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: 6, SkipFalse: 8},       // 3: TCP
		bpf.LoadAbsolute{Off: 20, Size: 2},                          // 4: flags + fragment offset
		bpf.JumpIf{Cond: bpf.JumpBitsSet, Val: 0x1fff, SkipTrue: 6}, // 5: not first fragment
		bpf.LoadMemShift{Off: 14},                                   // 6: X = IP header length
		bpf.LoadIndirect{Off: 14, Size: 2},                          // 7: source port
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: p, SkipTrue: 2},        // 8
		bpf.LoadIndirect{Off: 16, Size: 2},                          // 9: destination port
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: p, SkipFalse: 1},       // 10
		bpf.RetConstant{Val: snapLen},                               // 11: accept
		bpf.RetConstant{Val: 0},                                     // 12: drop
	}
}
