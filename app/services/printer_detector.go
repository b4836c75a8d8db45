package services

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

// DetectedPrinter represents a printer found on the system or the network
type DetectedPrinter struct {
	Name           string `json:"name"`
	Type           string `json:"type"`            // "usb", "network", "serial"
	ConnectionType string `json:"connection_type"` // "usb", "ethernet", "serial"
	Address        string `json:"address"`
	Port           int    `json:"port"`
	IsDefault      bool   `json:"is_default"`
	Status         string `json:"status"` // "online", "offline", "unknown"
	Model          string `json:"model"`
}

// DetectSystemPrinters detects printers installed via CUPS
func DetectSystemPrinters() ([]DetectedPrinter, error) {
	switch runtime.GOOS {
	case "linux", "darwin":
		return detectCUPSPrinters()
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// detectCUPSPrinters lists printers known to CUPS via lpstat
func detectCUPSPrinters() ([]DetectedPrinter, error) {
	cmd := exec.Command("lpstat", "-p", "-d")
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("failed to detect printers (is CUPS installed?): %w", err)
	}

	return parseCUPSOutput(string(output)), nil
}

// parseCUPSOutput parses lpstat output. The default destination line comes
// after the printer list, so it is resolved before the printers are built.
func parseCUPSOutput(output string) []DetectedPrinter {
	var printers []DetectedPrinter
	var defaultPrinter string

	lines := strings.Split(output, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "system default destination:") {
			defaultPrinter = strings.TrimSpace(strings.TrimPrefix(line, "system default destination:"))
		}
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)

		// "printer NAME is idle. enabled since..."
		if strings.HasPrefix(line, "printer ") {
			parts := strings.Fields(line)
			if len(parts) < 2 {
				continue
			}
			name := parts[1]
			printer := DetectedPrinter{
				Name:           name,
				Type:           "usb",
				ConnectionType: "usb",
				Address:        "/dev/usb/lp0",
				IsDefault:      name == defaultPrinter,
				Status:         "unknown",
			}

			if strings.Contains(line, "idle") {
				printer.Status = "online"
			} else if strings.Contains(line, "disabled") {
				printer.Status = "offline"
			}

			printers = append(printers, printer)
		}
	}

	return printers
}

// DiscoverNetworkPrinters browses mDNS for raw-socket thermal printers.
// Most ESC/POS network printers announce _pdl-datastream._tcp on port 9100.
func DiscoverNetworkPrinters(timeout time.Duration) ([]DetectedPrinter, error) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var printers []DetectedPrinter
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			printer := DetectedPrinter{
				Name:           entry.Instance,
				Type:           "network",
				ConnectionType: "ethernet",
				Port:           entry.Port,
				Status:         "online",
			}
			if len(entry.AddrIPv4) > 0 {
				printer.Address = entry.AddrIPv4[0].String()
			}
			for _, txt := range entry.Text {
				if strings.HasPrefix(txt, "ty=") {
					printer.Model = strings.TrimPrefix(txt, "ty=")
				}
			}
			if printer.Address != "" {
				printers = append(printers, printer)
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := resolver.Browse(ctx, "_pdl-datastream._tcp", "local.", entries); err != nil {
		return nil, fmt.Errorf("mDNS browse failed: %w", err)
	}

	<-ctx.Done()
	<-done

	return printers, nil
}

// DetectSerialPorts lists serial/USB device paths a thermal printer could
// hang off of.
func DetectSerialPorts() ([]string, error) {
	var ports []string

	patterns := []string{"/dev/ttyUSB*", "/dev/ttyACM*", "/dev/usb/lp*"}
	for _, pattern := range patterns {
		cmd := exec.Command("sh", "-c", fmt.Sprintf("ls %s 2>/dev/null", pattern))
		output, err := cmd.CombinedOutput()
		if err == nil && len(output) > 0 {
			lines := strings.Split(strings.TrimSpace(string(output)), "\n")
			ports = append(ports, lines...)
		}
	}

	return ports, nil
}
