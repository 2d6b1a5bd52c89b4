// Package common_tools provides the tools offered to the chat model.
//
// Available tools:
//   - get_stat: look up a precomputed statistic in a JSON stats file
//   - predict_customer: predict customer satisfaction for a trip, using a
//     remote scoring endpoint when configured and a local heuristic otherwise
package common_tools
