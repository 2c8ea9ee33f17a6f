// Package elqr decodes the EMV-style tag-length-value payload carried in
// the fragment of a QR payment URI into the ELQR field set.
package elqr

import (
	"fmt"
	"strconv"
	"strings"

	"qr-psp-gateway/internal/core/domain"
)

// EMV tags used by the ELQR layout. 52/53/54/63 are the standard EMVCo
// merchant category, currency, amount and CRC tags; 32/33 are the scheme's
// merchant-account and service templates.
const (
	tagPayloadFormat   = "00"
	tagInitiationType  = "01"
	tagMerchantAccount = "32"
	tagService         = "33"
	tagMerchantCode    = "52"
	tagCurrency        = "53"
	tagAmount          = "54"
	tagAdditionalData  = "62"
	tagLinkHash        = "63"

	subProvider       = "00"
	subMerchantID     = "01"
	subServiceID      = "02"
	subAccountNumber  = "03"
	subServiceName    = "00"
	subQRTxID         = "01"
	subQRComment      = "02"
)

// Decoded is the field set extracted from a QR payload plus the amount a
// dynamic QR may carry.
type Decoded struct {
	domain.QRPayload
	Amount int64 // 0 for static QR codes without a preset amount
}

// DecodeURI extracts the TLV payload from the URI fragment and decodes it.
func DecodeURI(qrURI string) (*Decoded, error) {
	if strings.TrimSpace(qrURI) == "" {
		return nil, fmt.Errorf("qr uri is empty")
	}
	idx := strings.IndexByte(qrURI, '#')
	if idx < 0 || idx == len(qrURI)-1 {
		return nil, fmt.Errorf("qr uri has no payload fragment")
	}
	return Decode(qrURI[idx+1:])
}

// Decode parses a raw TLV string into the ELQR field set.
func Decode(data string) (*Decoded, error) {
	fields, err := parseTLV(data)
	if err != nil {
		return nil, err
	}

	d := &Decoded{}
	d.CurrencyCode = fields[tagCurrency]
	d.QRLinkHash = fields[tagLinkHash]

	switch fields[tagInitiationType] {
	case "12":
		d.QRType = "dynamicQr"
	default:
		d.QRType = "staticQr"
	}

	if v, ok := fields[tagMerchantCode]; ok {
		code, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("merchant code %q is not numeric", v)
		}
		d.MerchantCode = code
	}

	if v, ok := fields[tagAmount]; ok && v != "" {
		amount, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("amount %q is not numeric", v)
		}
		d.Amount = amount
	}

	if tpl, ok := fields[tagMerchantAccount]; ok {
		sub, err := parseTLV(tpl)
		if err != nil {
			return nil, fmt.Errorf("merchant account template: %w", err)
		}
		d.MerchantProvider = sub[subProvider]
		d.MerchantID = sub[subMerchantID]
		d.ServiceID = sub[subServiceID]
		d.BeneficiaryAccountNumber = sub[subAccountNumber]
	}

	if tpl, ok := fields[tagService]; ok {
		sub, err := parseTLV(tpl)
		if err != nil {
			return nil, fmt.Errorf("service template: %w", err)
		}
		d.ServiceName = sub[subServiceName]
		d.QRTransactionID = sub[subQRTxID]
		d.QRComment = sub[subQRComment]
	}

	if tpl, ok := fields[tagAdditionalData]; ok {
		sub, err := parseTLVOrdered(tpl)
		if err != nil {
			return nil, fmt.Errorf("additional data template: %w", err)
		}
		for _, kv := range sub {
			d.Extra = append(d.Extra, domain.KeyValue{Key: kv[0], Value: kv[1]})
		}
		if len(d.Extra) > domain.MaxExtraData {
			return nil, fmt.Errorf("too many extra data entries: %d", len(d.Extra))
		}
	}

	if d.MerchantProvider == "" {
		return nil, fmt.Errorf("merchant provider missing from payload")
	}
	if len(d.QRLinkHash) != 4 {
		return nil, fmt.Errorf("qr link hash must be 4 characters, got %q", d.QRLinkHash)
	}
	return d, nil
}

// parseTLV walks a TAG(2)LEN(2)VALUE sequence. Later duplicates win, which
// matches how the scheme versions payloads.
func parseTLV(data string) (map[string]string, error) {
	ordered, err := parseTLVOrdered(data)
	if err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(ordered))
	for _, kv := range ordered {
		fields[kv[0]] = kv[1]
	}
	return fields, nil
}

func parseTLVOrdered(data string) ([][2]string, error) {
	var out [][2]string
	for i := 0; i < len(data); {
		if i+4 > len(data) {
			return nil, fmt.Errorf("truncated tlv header at offset %d", i)
		}
		tag := data[i : i+2]
		length, err := strconv.Atoi(data[i+2 : i+4])
		if err != nil || length < 0 {
			return nil, fmt.Errorf("invalid length for tag %s at offset %d", tag, i)
		}
		i += 4
		if i+length > len(data) {
			return nil, fmt.Errorf("tag %s value exceeds payload (len %d at offset %d)", tag, length, i)
		}
		out = append(out, [2]string{tag, data[i : i+length]})
		i += length
	}
	return out, nil
}
