package paramio

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/flexnn/flexnn/engine"
	"github.com/flexnn/flexnn/engine/kernel"
)

const magic = "7767517"

// ReadParam parses a param file into a Graph. Blob indices are assigned in
// first-seen order across the operator list, exactly as
// Net::load_param walks bottom/top names: a name not seen before allocates a
// new blob, consumed or produced by the operator mentioning it.
func ReadParam(path string) (*engine.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening param file %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if !sc.Scan() {
		return nil, fmt.Errorf("%w: %s: empty param file", engine.ErrIOFailure, path)
	}
	if strings.TrimSpace(sc.Text()) != magic {
		return nil, fmt.Errorf("%w: %s: bad magic %q", engine.ErrIOFailure, path, sc.Text())
	}
	if !sc.Scan() {
		return nil, fmt.Errorf("%w: %s: missing operator/blob counts", engine.ErrIOFailure, path)
	}
	counts := strings.Fields(sc.Text())
	if len(counts) != 2 {
		return nil, fmt.Errorf("%w: %s: expected 2 counts, got %d", engine.ErrIOFailure, path, len(counts))
	}
	opCount, err := strconv.Atoi(counts[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: bad operator count: %v", engine.ErrIOFailure, path, err)
	}

	g := &engine.Graph{Operators: make([]engine.Operator, 0, opCount)}
	blobIndex := map[string]int{}

	blobRef := func(name string, op int, asInput bool) int {
		bi, ok := blobIndex[name]
		if !ok {
			bi = len(g.Blobs)
			g.Blobs = append(g.Blobs, engine.Blob{Name: name, Producer: -1, Consumer: -1})
			blobIndex[name] = bi
		}
		if asInput {
			g.Blobs[bi].Consumer = op
		} else {
			g.Blobs[bi].Producer = op
		}
		return bi
	}

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("%w: %s: malformed operator line %q", engine.ErrIOFailure, path, line)
		}
		kind := engine.OperatorKind(fields[0])
		name := fields[1]
		inCount, err1 := strconv.Atoi(fields[2])
		outCount, err2 := strconv.Atoi(fields[3])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: %s: bad bottom/top count on %q", engine.ErrIOFailure, path, line)
		}
		pos := 4
		if len(fields) < pos+inCount+outCount {
			return nil, fmt.Errorf("%w: %s: operator %q declares more blobs than present", engine.ErrIOFailure, path, name)
		}

		opIdx := len(g.Operators)
		inputs := make([]int, inCount)
		for i := 0; i < inCount; i++ {
			inputs[i] = blobRef(fields[pos], opIdx, true)
			pos++
		}
		outputs := make([]int, outCount)
		for i := 0; i < outCount; i++ {
			outputs[i] = blobRef(fields[pos], opIdx, false)
			pos++
		}

		opts := map[string]string{}
		for _, kv := range fields[pos:] {
			k, v, ok := strings.Cut(kv, "=")
			if !ok {
				return nil, fmt.Errorf("%w: %s: operator %q bad option %q", engine.ErrIOFailure, path, name, kv)
			}
			opts[k] = v
		}

		params, err := decodeParams(kind, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: operator %q: %v", engine.ErrIOFailure, path, name, err)
		}

		g.Operators = append(g.Operators, engine.Operator{
			Kind: kind, Name: name, Inputs: inputs, Outputs: outputs, Params: params,
		})
		if kind == engine.KindInput {
			g.InputCount++
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", engine.ErrIOFailure, path, err)
	}
	if len(g.Operators) != opCount {
		return nil, fmt.Errorf("%w: %s: header promised %d operators, found %d", engine.ErrIOFailure, path, opCount, len(g.Operators))
	}
	return g, nil
}

// WriteParam serialises g in the same format ReadParam accepts.
func WriteParam(path string, g *engine.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating param file %s: %v", engine.ErrIOFailure, path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintln(w, magic)
	fmt.Fprintf(w, "%d %d\n", len(g.Operators), len(g.Blobs))
	for _, op := range g.Operators {
		parts := []string{string(op.Kind), op.Name, strconv.Itoa(len(op.Inputs)), strconv.Itoa(len(op.Outputs))}
		for _, bi := range op.Inputs {
			parts = append(parts, g.Blobs[bi].Name)
		}
		for _, bi := range op.Outputs {
			parts = append(parts, g.Blobs[bi].Name)
		}
		parts = append(parts, encodeParams(op.Kind, op.Params)...)
		fmt.Fprintln(w, strings.Join(parts, " "))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("%w: writing %s: %v", engine.ErrIOFailure, path, err)
	}
	return nil
}

func decodeParams(kind engine.OperatorKind, opts map[string]string) (any, error) {
	atoi := func(key string, dst *int) error {
		v, ok := opts[key]
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("option %s=%q: %v", key, v, err)
		}
		*dst = n
		return nil
	}

	switch kind {
	case engine.KindInput:
		p := &kernel.InputParams{}
		dims := strings.Split(opts["shape"], "x")
		if len(dims) != 4 {
			return nil, fmt.Errorf("Input needs shape=WxHxDxC, got %q", opts["shape"])
		}
		for i, d := range dims {
			n, err := strconv.Atoi(d)
			if err != nil {
				return nil, fmt.Errorf("Input shape dim %d: %v", i, err)
			}
			p.Shape[i] = n
		}
		return p, nil
	case engine.KindConvolution:
		p := &kernel.ConvParams{}
		for key, dst := range map[string]*int{
			"num_output": &p.NumOutput, "kernel_w": &p.KernelW, "kernel_h": &p.KernelH,
			"dilation_w": &p.DilationW, "dilation_h": &p.DilationH,
			"stride_w": &p.StrideW, "stride_h": &p.StrideH,
			"pad_left": &p.PadLeft, "pad_right": &p.PadRight, "pad_top": &p.PadTop, "pad_bottom": &p.PadBottom,
			"weight_data_size": &p.WeightDataSize, "weight_layout": &p.WeightLayout,
		} {
			if err := atoi(key, dst); err != nil {
				return nil, err
			}
		}
		if p.DilationW == 0 {
			p.DilationW = 1
		}
		if p.DilationH == 0 {
			p.DilationH = 1
		}
		if p.StrideW == 0 {
			p.StrideW = 1
		}
		if p.StrideH == 0 {
			p.StrideH = 1
		}
		return p, nil
	case engine.KindInnerProduct:
		p := &kernel.InnerProductParams{}
		if err := atoi("num_output", &p.NumOutput); err != nil {
			return nil, err
		}
		if err := atoi("weight_data_size", &p.WeightDataSize); err != nil {
			return nil, err
		}
		return p, nil
	case engine.KindConcat:
		p := &kernel.ConcatParams{Axis: 1}
		if err := atoi("axis", &p.Axis); err != nil {
			return nil, err
		}
		return p, nil
	case engine.KindSplit:
		return &kernel.SplitParams{}, nil
	case engine.KindGather:
		p := &kernel.GatherParams{}
		if err := atoi("axis", &p.Axis); err != nil {
			return nil, err
		}
		return p, nil
	case engine.KindDivTrilWhere:
		p := &kernel.DivTrilWhereParams{}
		if v, ok := opts["divisor"]; ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("option divisor=%q: %v", v, err)
			}
			p.Divisor = f
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown operator kind %q", kind)
	}
}

func encodeParams(kind engine.OperatorKind, params any) []string {
	var out []string
	kv := func(k string, v int) { out = append(out, fmt.Sprintf("%s=%d", k, v)) }

	switch kind {
	case engine.KindInput:
		p := params.(*kernel.InputParams)
		out = append(out, fmt.Sprintf("shape=%dx%dx%dx%d", p.Shape[0], p.Shape[1], p.Shape[2], p.Shape[3]))
	case engine.KindConvolution:
		p := params.(*kernel.ConvParams)
		kv("num_output", p.NumOutput)
		kv("kernel_w", p.KernelW)
		kv("kernel_h", p.KernelH)
		kv("dilation_w", p.DilationW)
		kv("dilation_h", p.DilationH)
		kv("stride_w", p.StrideW)
		kv("stride_h", p.StrideH)
		kv("pad_left", p.PadLeft)
		kv("pad_right", p.PadRight)
		kv("pad_top", p.PadTop)
		kv("pad_bottom", p.PadBottom)
		kv("weight_data_size", p.WeightDataSize)
		kv("weight_layout", p.WeightLayout)
	case engine.KindInnerProduct:
		p := params.(*kernel.InnerProductParams)
		kv("num_output", p.NumOutput)
		kv("weight_data_size", p.WeightDataSize)
	case engine.KindConcat:
		p := params.(*kernel.ConcatParams)
		kv("axis", p.Axis)
	case engine.KindSplit:
		// no parameters
	case engine.KindGather:
		p := params.(*kernel.GatherParams)
		kv("axis", p.Axis)
	case engine.KindDivTrilWhere:
		p := params.(*kernel.DivTrilWhereParams)
		out = append(out, fmt.Sprintf("divisor=%g", p.Divisor))
	}
	return out
}
