// Copyright 2026 someonegg. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package msgpubsub

import (
	"sort"
	"strings"

	"github.com/alphadose/haxmap"
)

// filterSet is the set of topic prefixes of a subscriber. The empty prefix
// matches every topic.
type filterSet struct {
	prefixes *haxmap.Map[string, struct{}]
}

func newFilterSet() *filterSet {
	return &filterSet{prefixes: haxmap.New[string, struct{}]()}
}

func (f *filterSet) add(prefix string) {
	f.prefixes.Set(prefix, struct{}{})
}

func (f *filterSet) remove(prefix string) {
	f.prefixes.Del(prefix)
}

func (f *filterSet) match(topic string) bool {
	matched := false
	f.prefixes.ForEach(func(prefix string, _ struct{}) bool {
		matched = strings.HasPrefix(topic, prefix)
		return !matched
	})
	return matched
}

func (f *filterSet) list() []string {
	var l []string
	f.prefixes.ForEach(func(prefix string, _ struct{}) bool {
		l = append(l, prefix)
		return true
	})
	sort.Strings(l)
	return l
}
