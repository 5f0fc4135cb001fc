package tinyg

import (
	"fmt"

	"github.com/mastercactapus/g2stream/machine"
	"github.com/sirupsen/logrus"
)

// console is how every role reports: events go to the bus, messages are also
// logged.
type console struct {
	bus *machine.Bus
	log *logrus.Entry
}

func (c *console) emit(sev machine.Severity, format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	c.log.Log(sev.Level(), text)
	c.bus.Publish(machine.Message{Severity: sev, Text: text})
}

func (c *console) publish(v interface{}) { c.bus.Publish(v) }

func (c *console) with(key string, value interface{}) *console {
	return &console{bus: c.bus, log: c.log.WithField(key, value)}
}
