// SPDX-License-Identifier: Apache-2.0

package arena

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

// Statistics summarises the usage of one or more allocators.
type Statistics struct {
	ArenaCount      int
	AllocationCount int
	UsedBytes       int
	TotalBytes      int
	PeakBytes       int
}

// StatisticsSource is implemented by every allocator in this package.
type StatisticsSource interface {
	Name() string
	AddStatistics(stats *Statistics)
}

var (
	_ StatisticsSource = (*Linear)(nil)
	_ StatisticsSource = (*Stack)(nil)
)

func (s *Statistics) Clear() {
	*s = Statistics{}
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.ArenaCount += other.ArenaCount
	s.AllocationCount += other.AllocationCount
	s.UsedBytes += other.UsedBytes
	s.TotalBytes += other.TotalBytes
	s.PeakBytes += other.PeakBytes
}

func (s *Statistics) writeJSON(json *jwriter.ObjectState) {
	json.Name("Arenas").Int(s.ArenaCount)
	json.Name("Allocations").Int(s.AllocationCount)
	json.Name("UsedBytes").Int(s.UsedBytes)
	json.Name("TotalBytes").Int(s.TotalBytes)
	json.Name("UnusedBytes").Int(s.TotalBytes - s.UsedBytes)
	json.Name("PeakBytes").Int(s.PeakBytes)
}

// BuildStatsString renders the statistics of every source, plus their total, as a JSON document.
func BuildStatsString(sources ...StatisticsSource) string {
	writer := jwriter.NewWriter()
	root := writer.Object()

	var total Statistics
	arenas := root.Name("Allocators").Array()
	for _, source := range sources {
		var stats Statistics
		source.AddStatistics(&stats)
		total.AddStatistics(&stats)

		obj := arenas.Object()
		obj.Name("Name").String(source.Name())
		stats.writeJSON(&obj)
		obj.End()
	}
	arenas.End()

	totalObj := root.Name("Total").Object()
	total.writeJSON(&totalObj)
	totalObj.End()

	root.End()
	return string(writer.Bytes())
}
