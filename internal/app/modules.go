package app

import (
	"io"

	"github.com/vk/streamgrid/internal/registry"
	"github.com/vk/streamgrid/modules/grid_source"
	"github.com/vk/streamgrid/modules/http_source"
	"github.com/vk/streamgrid/modules/print"
	"github.com/vk/streamgrid/modules/scale"
	"github.com/vk/streamgrid/modules/sequence"
	"github.com/vk/streamgrid/modules/smooth"
	"github.com/vk/streamgrid/modules/sort"
)

// coreModules is the definitive list of all modules that are compiled into
// the streamgrid binary. Print sinks write to outW.
func coreModules(outW io.Writer) []registry.Module {
	return []registry.Module{
		&grid_source.Module{},
		&smooth.Module{},
		&scale.Module{},
		&sequence.Module{},
		&http_source.Module{},
		&sort.Module{},
		&print.Module{Out: outW},
	}
}
