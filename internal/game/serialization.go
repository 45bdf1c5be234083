package game

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/emberline/duelcore/internal/game/cards"
	"github.com/emberline/duelcore/internal/game/state"
)

// ChecksumVersion identifies the canonical layout hashed by ComputeChecksum.
const ChecksumVersion = 1

// Checksum is a deterministic digest of a game state. Two peers holding equal
// states compute equal checksums regardless of timestamps or encoding.
type Checksum struct {
	Hash    string `json:"hash"`
	Version int    `json:"version"`
}

// ComputeChecksum hashes the canonical representation of gs with BLAKE2b-256.
func ComputeChecksum(gs state.GameState) (Checksum, error) {
	canonical, err := canonicalState(gs)
	if err != nil {
		return Checksum{}, err
	}
	sum := blake2b.Sum256([]byte(canonical))
	return Checksum{Hash: hex.EncodeToString(sum[:]), Version: ChecksumVersion}, nil
}

// VerifyChecksum reports whether gs hashes to expected.
func VerifyChecksum(gs state.GameState, expected Checksum) (bool, error) {
	if expected.Version != ChecksumVersion {
		return false, fmt.Errorf("checksum version %d not supported", expected.Version)
	}
	computed, err := ComputeChecksum(gs)
	if err != nil {
		return false, fmt.Errorf("failed to compute checksum: %w", err)
	}
	return computed.Hash == expected.Hash, nil
}

// canonicalState renders gs line by line. Empty and nil collections render
// identically and stack timestamps are left out.
func canonicalState(gs state.GameState) (string, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "GAME:%s|%d|%d|%d|%s|%d|%d|%d|%t\n",
		gs.MatchID, gs.Round, gs.Turn, gs.ActivePlayer, gs.Phase,
		gs.PriorityPlayer, gs.PassCount, gs.Winner, gs.Over)

	for _, p := range gs.Players {
		fmt.Fprintf(&buf, "PLAYER:%s|%d|%d/%d|%s|%t|%t|%t\n",
			p.ID, p.Seat, p.Health, p.MaxHealth, p.Mana,
			p.HasAttackToken, p.MulliganComplete, p.Left)
		writeZone(&buf, "HAND", p.Hand)
		writeZone(&buf, "DECK", p.Deck)
		writeZone(&buf, "GRAVEYARD", p.Graveyard)
	}

	fmt.Fprintf(&buf, "BATTLEFIELD:%d\n", gs.Battlefield.Size)
	for seat, row := range gs.Battlefield.Slots {
		for slot, c := range row {
			if c != nil {
				fmt.Fprintf(&buf, "  SLOT:%d/%d|%s\n", seat, slot, cardLine(c))
			}
		}
	}

	// Stack order is part of the state, so items keep their stored order.
	fmt.Fprintf(&buf, "STACK:%d\n", gs.Stack.NextSeq)
	for _, item := range gs.Stack.Items {
		ab := "-"
		if !item.Ability.Empty() {
			raw, err := json.Marshal(item.Ability)
			if err != nil {
				return "", fmt.Errorf("failed to encode stack item %s: %w", item.ID, err)
			}
			ab = string(raw)
		}
		fmt.Fprintf(&buf, "  ITEM:%s|%s|%s|%d|%s|%d|%d|%t|%s|%t|%t|%s\n",
			item.ID, item.Kind, item.TemplateID, item.SourcePlayer, item.SourceCard,
			item.Priority, item.Sequence, item.CanBeCountered, item.TargetID,
			item.AwaitingTarget, item.Reversed, ab)
	}

	if gs.Combat != nil {
		fmt.Fprintf(&buf, "COMBAT:%s|%d|%s\n", gs.Combat.AttackerID, gs.Combat.AttackerSeat, gs.Combat.TargetID)
	}
	buf.WriteString("APPLIED:")
	buf.WriteString(strings.Join(gs.AppliedActions, ","))
	buf.WriteString("\n")
	return buf.String(), nil
}

// writeZone keeps zone order: hand and deck order are game state.
func writeZone(buf *bytes.Buffer, name string, zone []*cards.Instance) {
	fmt.Fprintf(buf, "  %s:%d\n", name, len(zone))
	for _, c := range zone {
		fmt.Fprintf(buf, "    %s\n", cardLine(c))
	}
}

func cardLine(c *cards.Instance) string {
	keywords := append([]string(nil), c.Keywords...)
	sort.Strings(keywords)

	counterNames := make([]string, 0, len(c.Counters.Values))
	for name, n := range c.Counters.Values {
		if n != 0 {
			counterNames = append(counterNames, fmt.Sprintf("%s=%d", name, n))
		}
	}
	sort.Strings(counterNames)

	statuses := make([]string, len(c.Statuses))
	for i, s := range c.Statuses {
		statuses[i] = fmt.Sprintf("%s:%d/%d:%s:%d:%d:%s", s.Name, s.Attack, s.Health, s.Keyword, s.Remaining, s.Stacks, s.SourceID)
	}

	return fmt.Sprintf("%s|%s|%d|%s|%d|%s|%d/%d|%d|%t|%t|k=%s|s=%s|c=%s",
		c.ID, c.TemplateID, c.Owner, c.Name, c.Cost, c.Type,
		c.BaseAttack, c.BaseHealth, c.Damage, c.Reversed, c.SummoningSick,
		strings.Join(keywords, ","), strings.Join(statuses, ";"), strings.Join(counterNames, ","))
}

// SerializeToBytes gob-encodes gs. This is the encoding used for replay
// files and file snapshots.
func SerializeToBytes(gs state.GameState) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gs); err != nil {
		return nil, fmt.Errorf("failed to encode state: %w", err)
	}
	return buf.Bytes(), nil
}

// DeserializeFromBytes decodes a state written by SerializeToBytes.
func DeserializeFromBytes(data []byte) (state.GameState, error) {
	var gs state.GameState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&gs); err != nil {
		return state.GameState{}, fmt.Errorf("failed to decode state: %w", err)
	}
	return gs, nil
}

// ValidateSerializationRoundtrip checks that gs survives encoding by
// comparing checksums before and after.
func ValidateSerializationRoundtrip(gs state.GameState) error {
	original, err := ComputeChecksum(gs)
	if err != nil {
		return fmt.Errorf("failed to compute original checksum: %w", err)
	}
	data, err := SerializeToBytes(gs)
	if err != nil {
		return fmt.Errorf("failed to serialize: %w", err)
	}
	decoded, err := DeserializeFromBytes(data)
	if err != nil {
		return fmt.Errorf("failed to deserialize: %w", err)
	}
	again, err := ComputeChecksum(decoded)
	if err != nil {
		return fmt.Errorf("failed to compute deserialized checksum: %w", err)
	}
	if original.Hash != again.Hash {
		return fmt.Errorf("checksum mismatch: original=%s, deserialized=%s", original.Hash, again.Hash)
	}
	return nil
}
