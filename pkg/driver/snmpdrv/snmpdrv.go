/*
 * Copyright 2025 Routekit, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package snmpdrv implements a read-only SNMP driver for devices whose
// inventory platform is "snmp". It answers the getter family from the
// standard MIB-II object set; CLI and configuration operations are not
// supported over SNMP.
package snmpdrv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/routekit/netgate/pkg/driver"
	"github.com/routekit/netgate/pkg/logger"
	"github.com/routekit/netgate/pkg/models"
)

// Common SNMP OIDs - defined as constants for clarity and maintainability
const (
	// System OIDs
	oidSysDescr    = ".1.3.6.1.2.1.1.1.0"
	oidSysObjectID = ".1.3.6.1.2.1.1.2.0"
	oidSysUptime   = ".1.3.6.1.2.1.1.3.0"
	oidSysContact  = ".1.3.6.1.2.1.1.4.0"
	oidSysName     = ".1.3.6.1.2.1.1.5.0"
	oidSysLocation = ".1.3.6.1.2.1.1.6.0"

	// Interface table OIDs
	oidIfDescr       = ".1.3.6.1.2.1.2.2.1.2"
	oidIfSpeed       = ".1.3.6.1.2.1.2.2.1.5"
	oidIfPhysAddress = ".1.3.6.1.2.1.2.2.1.6"
	oidIfAdminStatus = ".1.3.6.1.2.1.2.2.1.7"
	oidIfOperStatus  = ".1.3.6.1.2.1.2.2.1.8"

	// Interface counter OIDs
	oidIfInOctets  = ".1.3.6.1.2.1.2.2.1.10"
	oidIfInErrors  = ".1.3.6.1.2.1.2.2.1.14"
	oidIfOutOctets = ".1.3.6.1.2.1.2.2.1.16"
	oidIfOutErrors = ".1.3.6.1.2.1.2.2.1.20"

	defaultPort      = 161
	defaultCommunity = "public"
	defaultTimeout   = 5 * time.Second
	defaultRetries   = 1
)

// Driver opens SNMP v2c sessions. Stateless; one Conn per dispatch.
type Driver struct {
	timeout time.Duration
	retries int
	logger  logger.Logger
}

// New creates an SNMP driver with the given transport timeout. A zero
// timeout uses the default.
func New(timeout time.Duration, log logger.Logger) *Driver {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Driver{
		timeout: timeout,
		retries: defaultRetries,
		logger:  log,
	}
}

// Open implements driver.Driver.
func (d *Driver) Open(_ context.Context, device *models.Device) (driver.Conn, error) {
	client := &gosnmp.GoSNMP{
		Target:    device.Target(),
		Port:      devicePort(device),
		Community: deviceCommunity(device),
		Version:   gosnmp.Version2c,
		Timeout:   d.timeout,
		Retries:   d.retries,
	}

	if err := client.Connect(); err != nil {
		return nil, &driver.ConnectError{Target: device.Target(), Err: err}
	}

	d.logger.Debug().
		Str("device", device.Name).
		Str("target", device.Target()).
		Msg("SNMP session opened")

	return &snmpConn{client: client, device: device}, nil
}

func devicePort(device *models.Device) uint16 {
	if device.Port > 0 {
		return uint16(device.Port)
	}

	if v, ok := device.Data["snmp_port"]; ok {
		if port, ok := v.(int); ok && port > 0 {
			return uint16(port)
		}
	}

	return defaultPort
}

func deviceCommunity(device *models.Device) string {
	if v, ok := device.Data["snmp_community"]; ok {
		if community, ok := v.(string); ok && community != "" {
			return community
		}
	}

	return defaultCommunity
}

// snmpConn is one open SNMP session.
type snmpConn struct {
	client *gosnmp.GoSNMP
	device *models.Device
}

// Getter implements driver.Conn.
func (c *snmpConn) Getter(_ context.Context, getter string, _ map[string]interface{}) (interface{}, error) {
	switch getter {
	case "facts":
		return c.getFacts()
	case "snmp_information":
		return c.getSNMPInformation()
	case "interfaces":
		return c.getInterfaces()
	case "interfaces_counters":
		return c.getInterfacesCounters()
	case "is_alive":
		return c.getIsAlive()
	default:
		return nil, fmt.Errorf("%w: getter %q on platform snmp", driver.ErrNotSupported, getter)
	}
}

// CLI implements driver.Conn. SNMP has no command channel.
func (c *snmpConn) CLI(_ context.Context, _ []string) (map[string]string, error) {
	return nil, fmt.Errorf("%w: cli on platform snmp", driver.ErrNotSupported)
}

// Configure implements driver.Conn. SNMP has no configuration channel.
func (c *snmpConn) Configure(_ context.Context, _ []string) (string, error) {
	return "", fmt.Errorf("%w: configure on platform snmp", driver.ErrNotSupported)
}

// Close implements driver.Conn.
func (c *snmpConn) Close() error {
	if c.client.Conn == nil {
		return nil
	}

	return c.client.Conn.Close()
}

func (c *snmpConn) getFacts() (interface{}, error) {
	oids := []string{oidSysDescr, oidSysObjectID, oidSysUptime, oidSysContact, oidSysName, oidSysLocation}

	result, err := c.client.Get(oids)
	if err != nil {
		return nil, &driver.ConnectError{Target: c.client.Target, Err: err}
	}

	facts := make(map[string]interface{})

	for _, v := range result.Variables {
		switch v.Name {
		case oidSysDescr:
			facts["os_version"] = pduString(v)
		case oidSysObjectID:
			facts["vendor_oid"] = pduString(v)
		case oidSysUptime:
			facts["uptime"] = pduUint(v)
		case oidSysContact:
			facts["contact"] = pduString(v)
		case oidSysName:
			facts["hostname"] = pduString(v)
		case oidSysLocation:
			facts["location"] = pduString(v)
		}
	}

	return facts, nil
}

func (c *snmpConn) getSNMPInformation() (interface{}, error) {
	result, err := c.client.Get([]string{oidSysContact, oidSysName, oidSysLocation})
	if err != nil {
		return nil, &driver.ConnectError{Target: c.client.Target, Err: err}
	}

	info := make(map[string]interface{})

	for _, v := range result.Variables {
		switch v.Name {
		case oidSysContact:
			info["contact"] = pduString(v)
		case oidSysName:
			info["chassis_id"] = pduString(v)
		case oidSysLocation:
			info["location"] = pduString(v)
		}
	}

	return info, nil
}

func (c *snmpConn) getInterfaces() (interface{}, error) {
	names, err := c.walkColumn(oidIfDescr)
	if err != nil {
		return nil, err
	}

	speeds, err := c.walkColumn(oidIfSpeed)
	if err != nil {
		return nil, err
	}

	adminStatus, err := c.walkColumn(oidIfAdminStatus)
	if err != nil {
		return nil, err
	}

	operStatus, err := c.walkColumn(oidIfOperStatus)
	if err != nil {
		return nil, err
	}

	macs, err := c.walkColumn(oidIfPhysAddress)
	if err != nil {
		return nil, err
	}

	interfaces := make(map[string]interface{}, len(names))

	for index, pdu := range names {
		name := pduString(pdu)
		if name == "" {
			continue
		}

		entry := map[string]interface{}{
			"is_enabled": pduInt(adminStatus[index]) == 1,
			"is_up":      pduInt(operStatus[index]) == 1,
			"speed":      pduUint(speeds[index]),
		}

		if mac, ok := macs[index]; ok {
			entry["mac_address"] = pduMAC(mac)
		}

		interfaces[name] = entry
	}

	return interfaces, nil
}

func (c *snmpConn) getInterfacesCounters() (interface{}, error) {
	names, err := c.walkColumn(oidIfDescr)
	if err != nil {
		return nil, err
	}

	inOctets, err := c.walkColumn(oidIfInOctets)
	if err != nil {
		return nil, err
	}

	outOctets, err := c.walkColumn(oidIfOutOctets)
	if err != nil {
		return nil, err
	}

	inErrors, err := c.walkColumn(oidIfInErrors)
	if err != nil {
		return nil, err
	}

	outErrors, err := c.walkColumn(oidIfOutErrors)
	if err != nil {
		return nil, err
	}

	counters := make(map[string]interface{}, len(names))

	for index, pdu := range names {
		name := pduString(pdu)
		if name == "" {
			continue
		}

		counters[name] = map[string]interface{}{
			"rx_octets": pduUint(inOctets[index]),
			"tx_octets": pduUint(outOctets[index]),
			"rx_errors": pduUint(inErrors[index]),
			"tx_errors": pduUint(outErrors[index]),
		}
	}

	return counters, nil
}

func (c *snmpConn) getIsAlive() (interface{}, error) {
	result, err := c.client.Get([]string{oidSysUptime})
	if err != nil {
		return nil, &driver.ConnectError{Target: c.client.Target, Err: err}
	}

	alive := len(result.Variables) > 0 &&
		result.Variables[0].Type != gosnmp.NoSuchObject &&
		result.Variables[0].Type != gosnmp.NoSuchInstance

	return map[string]interface{}{"is_alive": alive}, nil
}

// walkColumn bulk-walks one interface table column and returns the PDUs
// keyed by interface index (the last OID component).
func (c *snmpConn) walkColumn(oid string) (map[string]gosnmp.SnmpPDU, error) {
	pdus, err := c.client.BulkWalkAll(oid)
	if err != nil {
		return nil, &driver.ConnectError{Target: c.client.Target, Err: err}
	}

	out := make(map[string]gosnmp.SnmpPDU, len(pdus))

	for _, pdu := range pdus {
		out[indexOf(pdu.Name)] = pdu
	}

	return out, nil
}

func indexOf(oid string) string {
	if i := strings.LastIndex(oid, "."); i >= 0 {
		return oid[i+1:]
	}

	return oid
}

func pduString(pdu gosnmp.SnmpPDU) string {
	switch v := pdu.Value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func pduInt(pdu gosnmp.SnmpPDU) int {
	if pdu.Value == nil {
		return 0
	}

	return int(gosnmp.ToBigInt(pdu.Value).Int64())
}

func pduUint(pdu gosnmp.SnmpPDU) uint64 {
	if pdu.Value == nil {
		return 0
	}

	return gosnmp.ToBigInt(pdu.Value).Uint64()
}

func pduMAC(pdu gosnmp.SnmpPDU) string {
	raw, ok := pdu.Value.([]byte)
	if !ok || len(raw) == 0 {
		return ""
	}

	parts := make([]string, len(raw))
	for i, b := range raw {
		parts[i] = fmt.Sprintf("%02x", b)
	}

	return strings.Join(parts, ":")
}
