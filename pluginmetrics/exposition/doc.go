// Package exposition renders aggregate snapshots in the pull-based text format
// served to metrics scrapers:
//
//	# HELP language_server_metrics Percentage of successful language requests
//	# TYPE language_server_metrics gauge
//	language_server_metrics{id="acme.lang" method="hover"} 80
//
// Keys with no recorded requests produce no data line.
package exposition
