// Package domain contains the core entities of the subdomain monitor:
// monitored domain names, sets of observed subdomains, scan results and the
// alert/error events produced by a scan. The types are intentionally free of
// infrastructure concerns so they can be shared across packages.
package domain
