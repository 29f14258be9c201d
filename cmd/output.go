package cmd

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"firestige.xyz/bytescope/internal/command"
	"firestige.xyz/bytescope/internal/core"
	"firestige.xyz/bytescope/internal/monitor"
	"firestige.xyz/bytescope/internal/rules"
)

// writeStructured emits v as json or yaml. It reports false for other formats.
func writeStructured(out io.Writer, format string, v interface{}) (bool, error) {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	case "", "table":
		return false, nil
	default:
		return true, fmt.Errorf("unknown output format %q (must be table/json/yaml)", format)
	}
}

func printStatus(out io.Writer, st command.StatusResult) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	state := "disconnected"
	if st.Connected {
		state = "connected"
	}
	fmt.Fprintf(tw, "Version:\t%s\n", st.Version)
	fmt.Fprintf(tw, "Uptime:\t%ds\n", st.UptimeSec)
	fmt.Fprintf(tw, "Source:\t%s (%s)\n", st.Source, state)
	fmt.Fprintf(tw, "Framing:\tstart=%q end=%q\n", st.Start, st.End)
	fmt.Fprintf(tw, "Buffered:\t%d bytes (%d dropped)\n", st.BufferedBytes, st.DroppedBytes)
	fmt.Fprintf(tw, "Messages:\t%d retained of %d, %d framed total\n", st.Retained, st.MaxMessages, st.FramesTotal)
	fmt.Fprintf(tw, "Rules:\t%d watch, %d label, %d suspect\n",
		st.Rules[rules.KindWatch], st.Rules[rules.KindLabel], st.Rules[rules.KindSuspect])
	if st.CriticalActive {
		fmt.Fprintf(tw, "Alert:\tCRITICAL\n")
	}
	tw.Flush()
}

// printReport renders one message the way the inspector shows it: heading,
// payload, watch rows and warnings.
func printReport(out io.Writer, r monitor.Report, asText bool) {
	fmt.Fprintf(out, "── %s  #%d  %s  %d bytes\n", r.Title, r.Seq, r.Received.Format("15:04:05.000"), r.Length)
	if asText {
		fmt.Fprintf(out, "   %s\n", r.Text)
	} else {
		fmt.Fprintf(out, "   %s\n", spacedHex(r.Hex))
	}
	if len(r.Watches) > 0 {
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, w := range r.Watches {
			fmt.Fprintf(tw, "   %s\t%s %s\t%s\n", w.Name, w.Range, w.View, w.Value)
		}
		tw.Flush()
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(out, "   %s\n", w.String())
	}
}

// spacedHex regroups a report's packed hex into byte pairs.
func spacedHex(packed string) string {
	b, err := hex.DecodeString(packed)
	if err != nil {
		return packed
	}
	return core.FormatHexSpaced(b)
}
