//go:build !tinygo && !baremetal

package sim

import (
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// Registers returns every modelled register by name, as a read would see
// it but without side effects.
func (b *Board) Registers() map[string]uint32 {
	out := make(map[string]uint32, numRegs)
	for id := regID(0); id < numRegs; id++ {
		out[id.String()] = b.peek(id)
	}
	return out
}

// Diff lists the registers whose values differ between two snapshots.
func Diff(before, after map[string]uint32) []string {
	var changed []string
	for name, v := range after {
		if before[name] != v {
			changed = append(changed, name)
		}
	}
	slices.Sort(changed)
	return changed
}

func (b *Board) String() string {
	regs := b.Registers()
	names := maps.Keys(regs)
	slices.Sort(names)

	var sb strings.Builder
	fmt.Fprintf(&sb, "t=%v\n", b.Now())
	for _, name := range names {
		fmt.Fprintf(&sb, "%-15s 0x%08x\n", name, regs[name])
	}
	return sb.String()
}
