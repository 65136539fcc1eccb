// Package platform provides the CounterSource backends behind go-cpustat.
//
// Three backends are available:
//
//   - local: parses the text files under a proc root (normally /proc) with
//     monitor.ProcSource.
//   - remote: runs cat over SSH against a Linux host and parses the output
//     locally, so nothing needs to be installed on the remote side.
//   - portable: asks gopsutil for the same counters on hosts without the
//     /proc text layout (macOS, the BSDs, Windows).
//
// # Usage
//
// Creating a source from configuration:
//
//	src, err := platform.NewSource(ctx, platform.SourceConfig{Kind: platform.KindAuto})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer platform.CloseSource(src)
//
//	sampler := monitor.NewSampler(src)
//	pct, err := sampler.Sample(ctx, time.Second)
//
// # Remote sources
//
// Remote sources verify host keys against ~/.ssh/known_hosts unless a
// different file, a custom callback, or InsecureIgnoreHostKey is set. Every
// read is a separate SSH session; a broken connection surfaces as
// monitor.ErrSourceUnavailable and is not retried.
package platform
