//go:build pcap
// +build pcap

package commandproto

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"

	"github.com/banshee-data/starcam/internal/params"
)

// ReplayPCAPFile re-plays every UDP command packet in pcapFile against
// block, in capture order, as if a Listener had received them live. It
// is built only with the 'pcap' tag (this module's sole dependency on
// github.com/google/gopacket/pcap, which requires a libpcap
// development package at build time) and exists for reproducing a
// flight-computer command sequence recorded on the ground against a
// saved tuning state, mirroring internal/lidar/network.ReadPCAPFile's
// shape.
func ReplayPCAPFile(ctx context.Context, pcapFile string, udpPort int, block *params.Block, gate PipelineGate, stats Stats) error {
	if stats == nil {
		stats = noopStats{}
	}

	handle, err := pcap.OpenOffline(pcapFile)
	if err != nil {
		return fmt.Errorf("commandproto: open pcap file %s: %w", pcapFile, err)
	}
	defer handle.Close()

	filterStr := fmt.Sprintf("udp port %d", udpPort)
	if err := handle.SetBPFFilter(filterStr); err != nil {
		return fmt.Errorf("commandproto: set BPF filter %q: %w", filterStr, err)
	}
	log.Printf("commandproto: pcap replay filter set: %s", filterStr)

	packetSource := gopacket.NewPacketSource(handle, handle.LinkType())
	packetCount := 0
	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			log.Printf("commandproto: pcap replay stopping due to context cancellation (processed %d packets)", packetCount)
			return ctx.Err()
		case packet := <-packetSource.Packets():
			if packet == nil {
				elapsed := time.Since(startTime)
				log.Printf("commandproto: pcap replay complete: %d packets in %v", packetCount, elapsed)
				return nil
			}
			packetCount++

			udpLayer := packet.Layer(layers.LayerTypeUDP)
			if udpLayer == nil {
				continue
			}
			udp, ok := udpLayer.(*layers.UDP)
			if !ok {
				continue
			}

			payload := udp.Payload
			if len(payload) == 0 {
				continue
			}
			stats.AddPacket(len(payload))

			pkt, err := Decode(payload)
			if err != nil {
				stats.AddRejected()
				log.Printf("commandproto: pcap replay packet %d decode error: %v", packetCount, err)
				continue
			}
			if err := Apply(ctx, pkt, block, gate); err != nil {
				stats.AddRejected()
				if err != ErrNotInCharge {
					log.Printf("commandproto: pcap replay packet %d apply error: %v", packetCount, err)
				}
				continue
			}
			stats.AddApplied()
		}
	}
}
