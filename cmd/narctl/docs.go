package main

// General API documentation for swaggo. The served document lives in
// internal/httpapi (build tag swagger).
//
// @title           narengine diagnostics API
// @version         1.0
// @description     Read-only status, health and metrics of the in-process generation engine.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
