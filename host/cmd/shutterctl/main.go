package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"shutterfw/host/config"
	"shutterfw/host/serial"
	"shutterfw/host/shutter"
	"shutterfw/protocol"
)

var (
	cfgPath = flag.String("config", "", "Path to YAML config (flags override it)")
	device  = flag.String("device", "", "Serial device path")
	baud    = flag.Int("baud", 0, "Baud rate")
	dialect = flag.String("dialect", "", "Wire dialect: legacy, delimiter, or structured")
)

func main() {
	flag.Parse()

	cfg := loadConfig()
	dia, err := cfg.DialectValue()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Connecting to %s (%s dialect, %d baud)...\n", cfg.Serial.Device, dia, cfg.Serial.Baud)
	port, err := serial.Open(&serial.Config{
		Device:      cfg.Serial.Device,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.TimeoutMs,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	client := shutter.NewClient(port, dia)
	client.SetTimeout(time.Duration(cfg.CommandTimeoutMs) * time.Millisecond)
	client.SetRetries(cfg.Retries)

	if dia == protocol.DialectStructured {
		if err := client.Handshake(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: handshake failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Handshake OK.")
	}

	fmt.Println("Enter commands ('help' for the list, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		runCommand(client, line)
	}
}

func loadConfig() *config.Config {
	var cfg *config.Config
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	} else {
		cfg = &config.Config{}
	}

	if *device != "" {
		cfg.Serial.Device = *device
	}
	if *baud != 0 {
		cfg.Serial.Baud = *baud
	}
	if *dialect != "" {
		cfg.Dialect = *dialect
	}
	// Fill in anything neither the file nor the flags set.
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runCommand(client *shutter.Client, line string) {
	fields := strings.Fields(line)
	verb := fields[0]

	switch verb {
	case "help":
		printHelp()

	case "ping":
		if err := client.Handshake(); err != nil {
			fmt.Printf("ping failed: %v\n", err)
			return
		}
		fmt.Println("pong")

	case "close", "open", "wopen":
		ch, ok := parseChannel(fields)
		if !ok {
			return
		}
		level := verbLevel(verb)
		if err := client.Move(ch, level); err != nil {
			fmt.Printf("move failed: %v\n", err)
			return
		}
		fmt.Printf("channel %d -> %s (%d us)\n", ch+1, level, level.Pulsewidth())

	case "state":
		if len(fields) < 2 {
			for ch := uint8(0); ch < protocol.NumChannels; ch++ {
				printState(client, ch)
			}
			return
		}
		ch, ok := parseChannel(fields)
		if !ok {
			return
		}
		printState(client, ch)

	default:
		fmt.Printf("unknown command %q (try 'help')\n", verb)
	}
}

// verbLevel maps the operator verbs to shutter levels: close=Low,
// open=Mid, wopen=High (the rest position).
func verbLevel(verb string) protocol.Level {
	switch verb {
	case "close":
		return protocol.LevelLow
	case "open":
		return protocol.LevelMid
	}
	return protocol.LevelHigh
}

func parseChannel(fields []string) (uint8, bool) {
	if len(fields) < 2 {
		fmt.Println("usage:", fields[0], "<channel 1-4>")
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil || n < 1 || n > protocol.NumChannels {
		fmt.Printf("bad channel %q (want 1-%d)\n", fields[1], protocol.NumChannels)
		return 0, false
	}
	return uint8(n - 1), true
}

func printState(client *shutter.Client, ch uint8) {
	micros, err := client.Position(ch)
	if err != nil {
		fmt.Printf("channel %d: query failed: %v\n", ch+1, err)
		return
	}
	fmt.Printf("channel %d: %d us\n", ch+1, micros)
}

func printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  close <n>   move channel n (1-4) to the closed position")
	fmt.Println("  open <n>    move channel n to the open position")
	fmt.Println("  wopen <n>   move channel n to the wide-open rest position")
	fmt.Println("  state [n]   query the stored position of channel n (or all)")
	fmt.Println("  ping        handshake (structured dialect only)")
	fmt.Println("  quit        exit")
}
