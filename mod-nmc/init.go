/*
 * apccheck - Reliable and lightweight APC UPS monitoring plugins written in Go
 * Copyright (C) 2019  Pascal Mathis
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <http://www.gnu.org/licenses/>.
 */

package modnmc

import (
	"fmt"
	"github.com/snapserv/apccheck/apccheck"
	"time"
)

type nmcModule struct {
	apccheck.Module

	session Session

	Hostname       string
	ConnectionMode string

	SnmpPort      uint16
	SnmpCommunity string
	SnmpVersion   string
	SnmpTimeout   time.Duration
	SnmpRetries   int

	ConsolePort     uint16
	ConsoleUsername string
	ConsolePassword string
}

// NewNmcModule instantiates a new module for monitoring the external sensors of an APC network management card
func NewNmcModule() *nmcModule {
	return &nmcModule{
		Module: apccheck.NewModule("nmc",
			apccheck.ModuleDescription("APC Network Management Card"),
			apccheck.ModulePlugin(newTemperaturePlugin()),
			apccheck.ModulePlugin(newHumidityPlugin()),
			apccheck.ModulePlugin(newSensorsPlugin()),
		),
	}
}

func (m *nmcModule) DefineFlags(node apccheck.KingpinNode) {
	node.Flag("hostname", "Specifies the hostname or IP address of the network management card.").
		Short('H').Required().StringVar(&m.Hostname)

	node.Flag("mode", "Specifies the mode which should be used to communicate with the network management card, "+
		"which can either be snmp (recommended) or console.").
		Short('m').Default("snmp").EnumVar(&m.ConnectionMode, "snmp", "console")

	node.Flag("snmp-port", "SNMP Mode: Specifies the UDP port of the SNMP agent.").
		Default("161").Uint16Var(&m.SnmpPort)

	node.Flag("snmp-community", "SNMP Mode: Specifies the community string which should be used for authentication.").
		Default("public").StringVar(&m.SnmpCommunity)

	node.Flag("snmp-version", "SNMP Mode: Specifies the protocol version, which can either be 1 or 2c.").
		Default("2c").EnumVar(&m.SnmpVersion, "1", "2c")

	node.Flag("snmp-timeout", "SNMP Mode: Specifies the timeout for a single SNMP request.").
		Default("5s").DurationVar(&m.SnmpTimeout)

	node.Flag("snmp-retries", "SNMP Mode: Specifies how many times a timed out SNMP request gets repeated.").
		Default("3").IntVar(&m.SnmpRetries)

	node.Flag("console-port", "Console Mode: Specifies the TCP port of the telnet command line interface.").
		Default("23").Uint16Var(&m.ConsolePort)

	node.Flag("console-username", "Console Mode: Specifies the username which should be used for authentication.").
		Default("apc").StringVar(&m.ConsoleUsername)

	node.Flag("console-password", "Console Mode: Specifies the password which should be used for authentication.").
		Default("apc").StringVar(&m.ConsolePassword)
}

func (m *nmcModule) ExecutePlugin(plugin apccheck.Plugin) error {
	if m.ConnectionMode == "snmp" {
		session, err := NewSnmpSession(m.Hostname, m.SnmpPort, m.SnmpCommunity, m.SnmpVersion, m.SnmpTimeout, m.SnmpRetries)
		if err != nil {
			return err
		}

		m.session = session
	} else if m.ConnectionMode == "console" {
		m.session = NewConsoleSession(m.Hostname, m.ConsolePort, m.ConsoleUsername, m.ConsolePassword)
	} else {
		return fmt.Errorf("unknown connection mode: %s", m.ConnectionMode)
	}

	return m.Module.ExecutePlugin(plugin)
}
