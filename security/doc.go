// Package security builds client TLS configurations from file-based
// settings.
//
//	tls:
//	  ca_file: /etc/mira/ca.pem
//	  cert_file: /etc/mira/client.pem
//	  key_file: /etc/mira/client-key.pem
//
// A TLSConfig with no field set builds to nil, which callers treat as
// plaintext.
package security
