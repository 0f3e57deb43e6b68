package players

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gorcon/rcon"

	"github.com/ultikits/invbackup/internal/snapshot"
)

// RconRegistry enumerates players on a live Minecraft server over RCON. It
// drives the companion plugin's console commands:
//
//	invdata list                      -> one "uuid name" pair per line
//	invdata info <uuid>               -> "name world x y z expLevel"
//	invdata get <uuid> <section>      -> serialized section text (may be empty)
//	invdata exp <uuid>                -> "level progress"
//	invdata set <uuid> <section> <payload>
//	invdata setexp <uuid> <level> <progress>
//	invdata clear <uuid>
//
// Sections are inventory, armor, offhand and enderchest. Connections are
// short-lived: one dial per command, matching how sporadic backup traffic is.
type RconRegistry struct {
	address  string
	password string
}

// NewRconRegistry creates a registry for the server console at address.
func NewRconRegistry(address, password string) *RconRegistry {
	return &RconRegistry{address: address, password: password}
}

func (r *RconRegistry) execute(command string) (string, error) {
	conn, err := rcon.Dial(r.address, r.password)
	if err != nil {
		return "", fmt.Errorf("failed to connect to rcon at %s: %w", r.address, err)
	}
	defer conn.Close()

	response, err := conn.Execute(command)
	if err != nil {
		return "", fmt.Errorf("rcon command failed: %w", err)
	}
	return strings.TrimSpace(response), nil
}

// Get returns a handle for one online player, or false if they are absent.
func (r *RconRegistry) Get(uuid string) (LiveState, bool) {
	for _, p := range r.Online() {
		if p.(*rconPlayer).uuid == uuid {
			return p, true
		}
	}
	return nil, false
}

// Online lists the players currently on the server. An unreachable server
// yields an empty list; presence polling is not a hard failure.
func (r *RconRegistry) Online() []LiveState {
	response, err := r.execute("invdata list")
	if err != nil || response == "" {
		return nil
	}

	var out []LiveState
	for _, line := range strings.Split(response, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		out = append(out, &rconPlayer{registry: r, uuid: fields[0], name: fields[1]})
	}
	return out
}

// rconPlayer is the LiveState of one player reached through the console.
type rconPlayer struct {
	registry *RconRegistry
	uuid     string
	name     string
}

func (p *rconPlayer) Info() (PlayerInfo, error) {
	response, err := p.registry.execute("invdata info " + p.uuid)
	if err != nil {
		return PlayerInfo{}, err
	}
	fields := strings.Fields(response)
	if len(fields) < 6 {
		return PlayerInfo{}, fmt.Errorf("malformed info response for %s: %q", p.uuid, response)
	}

	info := PlayerInfo{UUID: p.uuid, Name: fields[0], World: fields[1]}
	info.X, _ = strconv.ParseFloat(fields[2], 64)
	info.Y, _ = strconv.ParseFloat(fields[3], 64)
	info.Z, _ = strconv.ParseFloat(fields[4], 64)
	info.ExpLevel, _ = strconv.Atoi(fields[5])
	return info, nil
}

func (p *rconPlayer) ReadSections(opts Options) (*snapshot.Content, error) {
	content := &snapshot.Content{}

	inventory, err := p.registry.execute("invdata get " + p.uuid + " inventory")
	if err != nil {
		return nil, err
	}
	content.Inventory = inventory

	if opts.Armor {
		if content.Armor, err = p.registry.execute("invdata get " + p.uuid + " armor"); err != nil {
			return nil, err
		}
		if content.Offhand, err = p.registry.execute("invdata get " + p.uuid + " offhand"); err != nil {
			return nil, err
		}
	}
	if opts.Enderchest {
		if content.Enderchest, err = p.registry.execute("invdata get " + p.uuid + " enderchest"); err != nil {
			return nil, err
		}
	}
	if opts.Exp {
		response, err := p.registry.execute("invdata exp " + p.uuid)
		if err != nil {
			return nil, err
		}
		fields := strings.Fields(response)
		if len(fields) >= 2 {
			content.ExpLevel, _ = strconv.Atoi(fields[0])
			content.ExpProgress, _ = strconv.ParseFloat(fields[1], 64)
		}
	}
	return content, nil
}

func (p *rconPlayer) WriteSections(c *snapshot.Content, opts Options) error {
	// Wholesale overwrite: clear first so slots absent from the snapshot
	// end up empty instead of keeping their current item.
	if _, err := p.registry.execute("invdata clear " + p.uuid); err != nil {
		return err
	}

	if err := p.setSection("inventory", c.Inventory); err != nil {
		return err
	}
	if opts.Armor {
		if err := p.setSection("armor", c.Armor); err != nil {
			return err
		}
		if err := p.setSection("offhand", c.Offhand); err != nil {
			return err
		}
	}
	if opts.Enderchest {
		if err := p.setSection("enderchest", c.Enderchest); err != nil {
			return err
		}
	}
	if opts.Exp {
		cmd := fmt.Sprintf("invdata setexp %s %d %g", p.uuid, c.ExpLevel, c.ExpProgress)
		if _, err := p.registry.execute(cmd); err != nil {
			return err
		}
	}
	return nil
}

func (p *rconPlayer) setSection(section, payload string) error {
	if payload == "" {
		return nil
	}
	_, err := p.registry.execute(fmt.Sprintf("invdata set %s %s %s", p.uuid, section, payload))
	return err
}
