// Package pipeline stitches the bit codec, tone analyzer, placement engine,
// chunker, distributor, map codec, and PNG injector/extractor into the
// encode and decode state machines described in spec section 4.11.
//
// Grounded on zanicar-stegano/cmd/stegano/stegano.go's linear conceal/reveal
// driver functions, extended with a single enum-valued state that Encode and
// Decode advance step by step in straight-line code; there is no per-step
// switch. On failure the state is not moved to the Error value: the failing
// state's name is logged and wrapped into the returned error.
package pipeline

// EncodeState enumerates the ordered encode steps.
type EncodeState int

const (
	EncodeInit EncodeState = iota
	EncodeReadInput
	EncodeCompress
	EncodeEncryptChecksum
	EncodeChunk
	EncodeAnalyzeCarriers
	EncodePickDistributionCarrier
	EncodeDistribute
	EncodeInject
	EncodeWriteMap
	EncodeCompleted
	EncodeError
)

func (s EncodeState) String() string {
	switch s {
	case EncodeInit:
		return "INIT"
	case EncodeReadInput:
		return "READ_INPUT"
	case EncodeCompress:
		return "COMPRESS"
	case EncodeEncryptChecksum:
		return "ENCRYPT_CHECKSUM"
	case EncodeChunk:
		return "CHUNK"
	case EncodeAnalyzeCarriers:
		return "ANALYZE_CARRIERS"
	case EncodePickDistributionCarrier:
		return "PICK_DISTRIBUTION_CARRIER"
	case EncodeDistribute:
		return "DISTRIBUTE"
	case EncodeInject:
		return "INJECT"
	case EncodeWriteMap:
		return "WRITE_MAP"
	case EncodeCompleted:
		return "COMPLETED"
	case EncodeError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// DecodeState enumerates the ordered decode steps.
type DecodeState int

const (
	DecodeInit DecodeState = iota
	DecodeScanMap
	DecodeDecryptMap
	DecodeDecompressMap
	DecodeParseMap
	DecodeExtractChunks
	DecodeAssemble
	DecodeVerifyChecksum
	DecodeDecrypt
	DecodeDecompress
	DecodeWriteOutput
	DecodeCompleted
	DecodeError
)

func (s DecodeState) String() string {
	switch s {
	case DecodeInit:
		return "INIT"
	case DecodeScanMap:
		return "SCAN_MAP"
	case DecodeDecryptMap:
		return "DECRYPT_MAP"
	case DecodeDecompressMap:
		return "DECOMPRESS_MAP"
	case DecodeParseMap:
		return "PARSE_MAP"
	case DecodeExtractChunks:
		return "EXTRACT_CHUNKS"
	case DecodeAssemble:
		return "ASSEMBLE"
	case DecodeVerifyChecksum:
		return "VERIFY_CHECKSUM"
	case DecodeDecrypt:
		return "DECRYPT"
	case DecodeDecompress:
		return "DECOMPRESS"
	case DecodeWriteOutput:
		return "WRITE_OUTPUT"
	case DecodeCompleted:
		return "COMPLETED"
	case DecodeError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
