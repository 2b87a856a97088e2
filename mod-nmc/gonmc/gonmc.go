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

package gonmc

import (
	"fmt"
	"github.com/google/goexpect"
	"github.com/sirupsen/logrus"
	"github.com/soniah/gosnmp"
	"github.com/ziutek/telnet"
	"strconv"
	"strings"
	"time"
)

const timeout = 10 * time.Second

// SnmpClient is a lightweight wrapper around a gosnmp connection, which offers typed helper methods for fetching
// single objects and walking table columns of an APC network management card. The client does not interpret any of the
// fetched objects, this is up to the caller.
type SnmpClient struct {
	target     string
	connection *gosnmp.GoSNMP
}

// ConsoleClient is a lightweight wrapper around goexpect and a telnet connection to the command line interface of an
// APC network management card. This structure handles the authentication sequence by itself and captures the welcome
// banner, which gets displayed right after a successful login.
type ConsoleClient struct {
	address  string
	username string
	password string
	banner   string
	expecter expect.Expecter
}

// NewSnmpClient instantiates a new 'SnmpClient' against the given target. The version string must either be '1' or
// '2c', other SNMP protocol versions are not being supported.
func NewSnmpClient(target string, port uint16, community string, version string, timeoutDuration time.Duration, retries int) (*SnmpClient, error) {
	snmpVersion := gosnmp.Version2c
	switch version {
	case "1":
		snmpVersion = gosnmp.Version1
	case "2c":
		snmpVersion = gosnmp.Version2c
	default:
		return nil, fmt.Errorf("gonmc: unsupported SNMP version [%s]", version)
	}

	return &SnmpClient{
		target: target,
		connection: &gosnmp.GoSNMP{
			Target:    target,
			Port:      port,
			Community: community,
			Version:   snmpVersion,
			Timeout:   timeoutDuration,
			Retries:   retries,
		},
	}, nil
}

// Connect establishes the underlying gosnmp connection. This method must be called exactly once before using any of
// the fetch helpers.
func (c *SnmpClient) Connect() error {
	logrus.WithField("target", c.target).Debug("gonmc: connecting snmp client")

	if err := c.connection.Connect(); err != nil {
		return fmt.Errorf("gonmc: could not connect to [%s] (%s)", c.target, err.Error())
	}

	return nil
}

// Close terminates the underlying gosnmp connection and is a no-op in case no connection was established.
func (c *SnmpClient) Close() error {
	if c.connection.Conn == nil {
		return nil
	}

	return c.connection.Conn.Close()
}

// GetString fetches a single object and returns its value as a string. An error gets returned in case the object is
// missing or not an octet string.
func (c *SnmpClient) GetString(oid string) (string, error) {
	pdu, err := c.get(oid)
	if err != nil {
		return "", err
	}

	value, ok := pduString(*pdu)
	if !ok {
		return "", fmt.Errorf("gonmc: object [%s] is not an octet string", oid)
	}

	return value, nil
}

// GetNumber fetches a single object and returns its value as an integer. An error gets returned in case the object is
// missing or not of a numeric type.
func (c *SnmpClient) GetNumber(oid string) (int64, error) {
	pdu, err := c.get(oid)
	if err != nil {
		return 0, err
	}

	value, ok := pduNumber(*pdu)
	if !ok {
		return 0, fmt.Errorf("gonmc: object [%s] is not a numeric type", oid)
	}

	return value, nil
}

// WalkStrings walks a single table column and returns all octet string values keyed by their row index. Objects of
// other types are being silently skipped, which allows the caller to detect missing cells.
func (c *SnmpClient) WalkStrings(oid string) (map[int]string, error) {
	pdus, err := c.walk(oid)
	if err != nil {
		return nil, err
	}

	values := make(map[int]string)
	for _, pdu := range pdus {
		index, err := rowIndex(oid, pdu.Name)
		if err != nil {
			continue
		}

		if value, ok := pduString(pdu); ok {
			values[index] = value
		}
	}

	return values, nil
}

// WalkNumbers walks a single table column and returns all numeric values keyed by their row index. Objects of other
// types are being silently skipped, which allows the caller to detect missing cells.
func (c *SnmpClient) WalkNumbers(oid string) (map[int]int64, error) {
	pdus, err := c.walk(oid)
	if err != nil {
		return nil, err
	}

	values := make(map[int]int64)
	for _, pdu := range pdus {
		index, err := rowIndex(oid, pdu.Name)
		if err != nil {
			continue
		}

		if value, ok := pduNumber(pdu); ok {
			values[index] = value
		}
	}

	return values, nil
}

func (c *SnmpClient) get(oid string) (*gosnmp.SnmpPDU, error) {
	result, err := c.connection.Get([]string{oid})
	if err != nil {
		return nil, fmt.Errorf("gonmc: could not fetch object [%s] (%s)", oid, err.Error())
	}

	if len(result.Variables) < 1 {
		return nil, fmt.Errorf("gonmc: received empty response for object [%s]", oid)
	}

	pdu := result.Variables[0]
	if pdu.Type == gosnmp.NoSuchObject || pdu.Type == gosnmp.NoSuchInstance {
		return nil, fmt.Errorf("gonmc: object [%s] does not exist on target [%s]", oid, c.target)
	}

	return &pdu, nil
}

func (c *SnmpClient) walk(oid string) ([]gosnmp.SnmpPDU, error) {
	logrus.WithFields(logrus.Fields{"target": c.target, "oid": oid}).Debug("gonmc: walking table column")

	pdus, err := c.connection.WalkAll(oid)
	if err != nil {
		return nil, fmt.Errorf("gonmc: could not walk column [%s] (%s)", oid, err.Error())
	}

	return pdus, nil
}

// rowIndex extracts the table row index from the object name of a walked column cell, which equals the last dotted
// segment for all tables with a single index component.
func rowIndex(columnOid string, objectName string) (int, error) {
	suffix := strings.TrimPrefix(objectName, columnOid+".")
	segments := strings.Split(suffix, ".")

	return strconv.Atoi(segments[len(segments)-1])
}

func pduString(pdu gosnmp.SnmpPDU) (string, bool) {
	if pdu.Type != gosnmp.OctetString {
		return "", false
	}

	switch value := pdu.Value.(type) {
	case []byte:
		return string(value), true
	case string:
		return value, true
	}

	return "", false
}

func pduNumber(pdu gosnmp.SnmpPDU) (int64, bool) {
	switch pdu.Type {
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Counter64, gosnmp.Gauge32, gosnmp.TimeTicks, gosnmp.Uinteger32:
		return gosnmp.ToBigInt(pdu.Value).Int64(), true
	}

	return 0, false
}

// NewConsoleClient instantiates a new 'ConsoleClient' against the given address, which must include the telnet port.
func NewConsoleClient(address string, username string, password string) *ConsoleClient {
	return &ConsoleClient{
		address:  address,
		username: username,
		password: password,
	}
}

// Connect dials the telnet connection and walks through the authentication sequence of the network management card.
// The welcome banner displayed after a successful login gets captured and can be retrieved with 'Banner()'.
func (c *ConsoleClient) Connect() error {
	var err error

	if c.expecter != nil {
		return fmt.Errorf("gonmc: already connected to console [%s]", c.address)
	}

	logrus.WithField("address", c.address).Debug("gonmc: connecting console client")
	c.expecter, _, err = spawnTelnetExpecter(c.address, timeout)
	if err != nil {
		return fmt.Errorf("gonmc: could not connect to console [%s] (%s)", c.address, err.Error())
	}

	result, err := c.expecter.ExpectBatch([]expect.Batcher{
		&expect.BExp{R: `User Name :\s*`},
		&expect.BSnd{S: c.username + "\r"},
		&expect.BExp{R: `Password  :\s*`},
		&expect.BSnd{S: c.password + "\r"},
		&expect.BExp{R: `([\s\S]+?)` + promptPattern},
	}, timeout)
	if err != nil {
		return fmt.Errorf("gonmc: could not authenticate against console [%s] (%s)", c.address, err.Error())
	}

	c.banner = strings.TrimSpace(result[2].Match[1])
	return nil
}

// Close terminates the console session and is a no-op in case no connection was established.
func (c *ConsoleClient) Close() error {
	if c.expecter == nil {
		return nil
	}

	c.expecter.Send("quit\r")
	err := c.expecter.Close()
	c.expecter = nil

	return err
}

// Banner returns the welcome banner which was captured during 'Connect()'.
func (c *ConsoleClient) Banner() string {
	return c.banner
}

// Execute sends a single command to the console and returns all output up to the next prompt. Please note that errors
// reported by the network management card itself are part of the output and must be handled by the caller according to
// the APC command specifications.
func (c *ConsoleClient) Execute(command string) (string, error) {
	if c.expecter == nil {
		return "", fmt.Errorf("gonmc: console client is not connected")
	}

	result, err := c.expecter.ExpectBatch([]expect.Batcher{
		&expect.BSnd{S: command + "\r"},
		&expect.BExp{R: command + `\r?\n([\s\S]*?)` + promptPattern},
	}, timeout)
	if err != nil {
		return "", fmt.Errorf("gonmc: command execution failed (%s)", err.Error())
	}

	return strings.TrimSpace(result[0].Match[1]), nil
}

const promptPattern = `\r?\napc>\s*`

func spawnTelnetExpecter(address string, timeout time.Duration, opts ...expect.Option) (expect.Expecter, <-chan error, error) {
	connection, err := telnet.Dial("tcp", address)
	if err != nil {
		return nil, nil, err
	}

	resultChannel := make(chan error)
	return expect.SpawnGeneric(&expect.GenOptions{
		In:  connection,
		Out: connection,
		Wait: func() error {
			return <-resultChannel
		},
		Close: func() error {
			close(resultChannel)
			return connection.Close()
		},
		Check: func() bool {
			return true
		},
	}, timeout, opts...)
}
