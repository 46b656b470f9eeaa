// Package logx is a thin structured-logging layer over zerolog.
//
// It exists so components can carry a value-type Logger with fixed fields,
// while the Service behind it can swap sinks and levels at runtime.
package logx
