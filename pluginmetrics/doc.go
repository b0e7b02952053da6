// Package pluginmetrics hosts process-level plumbing shared by the plugin
// metrics daemon: the app Launcher and environment-driven configuration.
//
// The aggregation core itself lives in the analytics, instrument, correlator,
// exposition and exporter subpackages.
package pluginmetrics
