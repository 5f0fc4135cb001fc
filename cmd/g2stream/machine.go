package main

import (
	"github.com/mastercactapus/g2stream/machine"
	"github.com/mastercactapus/g2stream/machine/tinyg"
)

// Machine is the part of a controller the API drives.
type Machine interface {
	Open() error
	Close() machine.State
	StartFile(name string) machine.State
	Stop() machine.State
	Pause() machine.State
	Resume() machine.State
	Send(line string) error
	State() machine.State

	Subscribe(size int) (<-chan interface{}, func())
}

var _ Machine = &tinyg.Controller{}
