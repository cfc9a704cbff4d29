package discovery

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeAnnouncementTXT creates the TXT records for an announcement.
func EncodeAnnouncementTXT(info *AnnouncementInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyAppID] = info.DeviceID.String()
	txt[TXTKeyInterfaces] = strings.Join(info.Interfaces, ",")

	if info.DeviceName != "" {
		txt[TXTKeyDeviceName] = info.DeviceName
	}
	if info.Model != "" {
		txt[TXTKeyModel] = info.Model
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	return txt
}

// DecodeAnnouncementTXT parses announcement TXT records.
func DecodeAnnouncementTXT(txt TXTRecordMap) (*AnnouncementInfo, error) {
	info := &AnnouncementInfo{}

	appID, ok := txt[TXTKeyAppID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyAppID)
	}
	id, err := uuid.Parse(appID)
	if err != nil || id == uuid.Nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAppID, appID)
	}
	info.DeviceID = id

	ifaces, ok := txt[TXTKeyInterfaces]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyInterfaces)
	}
	for _, name := range strings.Split(ifaces, ",") {
		if name = strings.TrimSpace(name); name != "" {
			info.Interfaces = append(info.Interfaces, name)
		}
	}

	info.DeviceName = txt[TXTKeyDeviceName]
	info.Model = txt[TXTKeyModel]
	info.Version = txt[TXTKeyVersion]
	return info, nil
}

// TXTRecordsToStrings converts a TXT map to "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	out := make([]string, 0, len(txt))
	for k, v := range txt {
		out = append(out, k+"="+v)
	}
	return out
}

// StringsToTXTRecords parses "key=value" strings. Keys are lower-cased;
// entries without '=' are kept with an empty value.
func StringsToTXTRecords(records []string) TXTRecordMap {
	txt := make(TXTRecordMap, len(records))
	for _, r := range records {
		k, v, _ := strings.Cut(r, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := txt[k]; dup {
			continue
		}
		txt[k] = v
	}
	return txt
}
