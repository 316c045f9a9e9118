package krb5

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/jcmturner/gokrb5/v8/iana/nametype"
	"github.com/jcmturner/gokrb5/v8/messages"
	"github.com/jcmturner/gokrb5/v8/types"
)

// MIT credential cache file format, version 4. gokrb5 can read these caches
// but has no writer, so the serialization lives here. Layout reference:
// krb5 src/lib/krb5/ccache/cc_file.c. All integers are big endian.

const (
	ccacheVersion = 0x0504

	// header tag for the KDC time offset, written as zero
	headerTagDeltaTime = 1

	// initial, pre-authenticated
	ticketFlags = 0x00600000
)

type ccachePrincipal struct {
	nameType   int32
	realm      string
	components []string
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	_ = binary.Write(buf, binary.BigEndian, v)
}

func writeData(buf *bytes.Buffer, data []byte) {
	writeUint32(buf, uint32(len(data)))
	buf.Write(data)
}

func writePrincipal(buf *bytes.Buffer, p ccachePrincipal) {
	writeUint32(buf, uint32(p.nameType))
	writeUint32(buf, uint32(len(p.components)))
	writeData(buf, []byte(p.realm))
	for _, c := range p.components {
		writeData(buf, []byte(c))
	}
}

// marshalCCache serializes one ticket-granting ticket into an MIT format v4
// credential cache image.
func marshalCCache(clientRealm string, clientName []string, tkt messages.Ticket, key types.EncryptionKey, authTime, endTime time.Time) ([]byte, error) {
	der, err := tkt.Marshal()
	if err != nil {
		return nil, fmt.Errorf("couldn't marshal ticket: %w", err)
	}

	buf := new(bytes.Buffer)
	writeUint16(buf, ccacheVersion)

	// v4 header: one delta-time tag with a zero KDC clock offset
	writeUint16(buf, 12)
	writeUint16(buf, headerTagDeltaTime)
	writeUint16(buf, 8)
	writeUint32(buf, 0)
	writeUint32(buf, 0)

	client := ccachePrincipal{
		nameType:   nametype.KRB_NT_PRINCIPAL,
		realm:      clientRealm,
		components: clientName,
	}
	server := ccachePrincipal{
		nameType:   int32(tkt.SName.NameType),
		realm:      tkt.Realm,
		components: tkt.SName.NameString,
	}

	// default principal
	writePrincipal(buf, client)

	// single credential entry
	writePrincipal(buf, client)
	writePrincipal(buf, server)

	writeUint16(buf, uint16(key.KeyType))
	writeData(buf, key.KeyValue)

	writeUint32(buf, uint32(authTime.Unix())) // authtime
	writeUint32(buf, uint32(authTime.Unix())) // starttime
	writeUint32(buf, uint32(endTime.Unix()))  // endtime
	writeUint32(buf, 0)                       // renew_till

	buf.WriteByte(0) // is_skey
	writeUint32(buf, ticketFlags)
	writeUint32(buf, 0) // no addresses
	writeUint32(buf, 0) // no authdata
	writeData(buf, der)
	writeData(buf, nil) // second ticket

	return buf.Bytes(), nil
}
