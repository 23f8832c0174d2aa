package decode

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// ObjDecoder is a minimal, dependency-free Wavefront OBJ reader: enough
// to turn "v"/"f" lines into a triangle-fan submesh per "o"/"g" group. It
// replaces the teacher's engine/assets/loaders/model.go, whose
// parseModelData was an unimplemented stub.
type ObjDecoder struct{}

func (ObjDecoder) DecodeMesh(sourcePath string, source []byte) (Model, error) {
	scanner := bufio.NewScanner(bytes.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var positions [][3]float32
	var submeshes []Submesh
	current := Submesh{Name: "default"}
	haveFaces := false

	flush := func() {
		if haveFaces {
			submeshes = append(submeshes, current)
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "o", "g":
			flush()
			name := "default"
			if len(fields) > 1 {
				name = fields[1]
			}
			current = Submesh{Name: name}
			haveFaces = false
		case "v":
			if len(fields) < 4 {
				return Model{}, fmt.Errorf("decode: %s: malformed vertex line %q", sourcePath, line)
			}
			x, err1 := strconv.ParseFloat(fields[1], 32)
			y, err2 := strconv.ParseFloat(fields[2], 32)
			z, err3 := strconv.ParseFloat(fields[3], 32)
			if err1 != nil || err2 != nil || err3 != nil {
				return Model{}, fmt.Errorf("decode: %s: malformed vertex line %q", sourcePath, line)
			}
			positions = append(positions, [3]float32{float32(x), float32(y), float32(z)})
		case "f":
			if len(fields) < 4 {
				return Model{}, fmt.Errorf("decode: %s: face with fewer than 3 vertices %q", sourcePath, line)
			}
			idxs := make([]uint32, 0, len(fields)-1)
			for _, f := range fields[1:] {
				// OBJ faces may carry "v/vt/vn"; we only need the
				// position index.
				vStr := strings.SplitN(f, "/", 2)[0]
				vi, err := strconv.Atoi(vStr)
				if err != nil {
					return Model{}, fmt.Errorf("decode: %s: malformed face index %q", sourcePath, f)
				}
				if vi < 0 {
					vi = len(positions) + vi + 1
				}
				if vi < 1 || vi > len(positions) {
					return Model{}, fmt.Errorf("decode: %s: face index %d out of range (have %d vertices)", sourcePath, vi, len(positions))
				}
				idxs = append(idxs, uint32(vi-1))
			}
			// Triangle-fan the polygon.
			for i := 1; i < len(idxs)-1; i++ {
				current.Indices = append(current.Indices, idxs[0], idxs[i], idxs[i+1])
			}
			haveFaces = true
		}
	}
	if err := scanner.Err(); err != nil {
		return Model{}, fmt.Errorf("decode: %s: %w", sourcePath, err)
	}
	flush()

	if len(submeshes) == 0 {
		return Model{}, fmt.Errorf("decode: %s: no faces found", sourcePath)
	}

	// Each submesh carries its own contiguous position buffer so a
	// gpu.MeshSource implementation doesn't need to know the full model's
	// index space.
	for i := range submeshes {
		seen := make(map[uint32]uint32, len(submeshes[i].Indices))
		var localPositions []float32
		var remapped []uint32
		for _, idx := range submeshes[i].Indices {
			local, ok := seen[idx]
			if !ok {
				local = uint32(len(localPositions) / 3)
				p := positions[idx]
				localPositions = append(localPositions, p[0], p[1], p[2])
				seen[idx] = local
			}
			remapped = append(remapped, local)
		}
		submeshes[i].Positions = localPositions
		submeshes[i].Indices = remapped
	}

	return Model{Submeshes: submeshes}, nil
}
