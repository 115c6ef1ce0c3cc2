// Package analysis derives crowd measures from recorded frames.
//
//   - [SpeedSeries] and [DominantFrequency]: mean speed over time and its
//     strongest oscillation, useful for spotting stop-and-go waves
//   - [GateCrossings] and [FlowRate]: agents passing a vertical gate line
//   - [Density]: agents per square metre inside a box
//   - [Paths]: per-agent path length and efficiency
//
// [Analyze] bundles these into a [Report] for one run.
package analysis
