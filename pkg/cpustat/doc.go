// Package cpustat measures CPU utilization from the kernel's cumulative
// per-mode tick counters and reads the related run-queue and processor
// facts.
//
// A Client reads its counters from one of three backends, chosen by the
// configuration's source kind:
//
//   - local: the /proc text files of this machine (default)
//   - remote: the /proc text files of another host, read over SSH
//   - portable: the counters gopsutil exposes on non-Linux systems
//
// Utilization is measured over a window: the counters are read twice, a
// configured duration apart, and each mode's share of the elapsed ticks is
// reported as a percentage.
//
// Basic usage:
//
//	client, err := cpustat.New(nil, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	pct, err := client.Sample(ctx, time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("busy: %.1f%%\n", pct.Utilization())
//
// Configuration files may be written in Lua, YAML or the legacy key/value
// format; NewFromFile detects which. With Options.WatchConfig set, Watch
// reloads the file whenever it changes.
//
// Operational counters are exported through expvar (Metrics) and the raw
// kernel counters through a Prometheus collector (Client.Collector).
package cpustat
