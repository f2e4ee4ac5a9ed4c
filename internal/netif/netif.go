// Package netif declares the networking collaborators the bring-up core drives:
// the TCP/IP stack, its default event loop and the station link driver.
package netif

import (
	"fmt"
	"net/netip"
)

// Category groups notifications the way the networking subsystem publishes them.
type Category string

const (
	CategoryLink    Category = "LINK"    // Link-layer (station association) events
	CategoryAddress Category = "ADDRESS" // Address-layer (IP assignment) events
)

// Kind is the sub-type of a notification within its category.
type Kind string

const (
	KindAny                 Kind = "*"
	KindStationStart        Kind = "STA_START"
	KindStationConnected    Kind = "STA_CONNECTED"
	KindStationDisconnected Kind = "STA_DISCONNECTED"
	KindStationGotIP        Kind = "STA_GOT_IP"
	KindStationLostIP       Kind = "STA_LOST_IP"
)

// Event is a single notification from the link or address layer.
type Event struct {
	Category Category
	Kind     Kind
	// Addr is the assigned address for KindStationGotIP.
	Addr netip.Addr
	// Reason carries the driver's disconnect reason, if any.
	Reason string
}

func (e Event) String() string {
	if e.Addr.IsValid() {
		return fmt.Sprintf("%s/%s(%s)", e.Category, e.Kind, e.Addr)
	}
	return fmt.Sprintf("%s/%s", e.Category, e.Kind)
}

// LinkEvent builds a link-layer notification.
func LinkEvent(kind Kind) Event {
	return Event{Category: CategoryLink, Kind: kind}
}

// GotIP builds the address-acquired notification.
func GotIP(addr netip.Addr) Event {
	return Event{Category: CategoryAddress, Kind: KindStationGotIP, Addr: addr}
}

// Handler receives notifications on the event loop's dispatch goroutine.
// It must not block.
type Handler func(Event)

// EventLoop delivers posted notifications to registered handlers.
type EventLoop interface {
	// Register subscribes h to kind within category. KindAny matches every kind.
	Register(category Category, kind Kind, h Handler) error
	// Post queues ev for dispatch without blocking. It reports false when ev was dropped.
	Post(ev Event) bool
}

// Stack is the TCP/IP stack hosting the default event loop and station interface.
type Stack interface {
	Init() error
	CreateDefaultEventLoop() (EventLoop, error)
	CreateDefaultStation() error
}

// Credentials for joining the access point. Held in memory only.
type Credentials struct {
	SSID     string
	Password string
	Hostname string
}

// Link is the station link-layer driver.
// Start and Connect return once the request is issued; outcomes arrive as events.
type Link interface {
	Init(loop EventLoop) error
	SetCredentials(c Credentials) error
	Start() error
	Connect() error
}

// Personal.AI order the ending
