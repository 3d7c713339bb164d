// SPDX-License-Identifier: GPL-2.0-or-later

// Package stat collects timing samples.
package stat

import (
	"sort"
	"time"

	"github.com/chewxy/math32"
)

// MeanCalc keeps a running mean without storing samples.
type MeanCalc struct {
	mean  float32
	count int
}

func (m *MeanCalc) Update(v float32) {
	m.count++
	m.mean += (v - m.mean) / float32(m.count)
}

// UpdateDur adds d in microseconds.
func (m *MeanCalc) UpdateDur(d time.Duration) {
	m.Update(float32(d.Microseconds()))
}

func (m *MeanCalc) Mean() float32 {
	return m.mean
}

func (m *MeanCalc) Count() int {
	return m.count
}

// SeriesCalc stores every sample.
type SeriesCalc struct {
	Entries []float32
}

func (s *SeriesCalc) Update(v float32) {
	s.Entries = append(s.Entries, v)
}

// UpdateDur adds d in microseconds.
func (s *SeriesCalc) UpdateDur(d time.Duration) {
	s.Update(float32(d.Microseconds()))
}

func (s *SeriesCalc) Mean() float32 {
	if len(s.Entries) == 0 {
		return 0
	}
	var sum float32
	for _, e := range s.Entries {
		sum += e
	}
	return sum / float32(len(s.Entries))
}

func (s *SeriesCalc) Median() float32 {
	if len(s.Entries) == 0 {
		return 0
	}
	e := append([]float32(nil), s.Entries...)
	sort.Slice(e, func(i, j int) bool { return e[i] < e[j] })
	return e[len(e)/2]
}

// Min is 0 for an empty series, as are Max, Mean, Median and Last.
func (s *SeriesCalc) Min() float32 {
	if len(s.Entries) == 0 {
		return 0
	}
	lo := s.Entries[0]
	for _, e := range s.Entries[1:] {
		lo = math32.Min(lo, e)
	}
	return lo
}

func (s *SeriesCalc) Max() float32 {
	if len(s.Entries) == 0 {
		return 0
	}
	hi := s.Entries[0]
	for _, e := range s.Entries[1:] {
		hi = math32.Max(hi, e)
	}
	return hi
}

func (s *SeriesCalc) Last() float32 {
	if len(s.Entries) == 0 {
		return 0
	}
	return s.Entries[len(s.Entries)-1]
}
