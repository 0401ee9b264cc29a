//go:build windows

package trustroots

import (
	"errors"
	"fmt"
	"slices"
	"unsafe"

	"golang.org/x/sys/windows"
)

// systemStores are the certificate stores holding trusted roots.
var systemStores = []string{"ROOT"}

// cryptENotFound ends CertEnumCertificatesInStore iteration.
const cryptENotFound = 0x80092004

func loadNativeRoots(_ SourceConfig) ([][]byte, error) {
	set := newDERSet()
	var errs []error
	for _, name := range systemStores {
		ders, err := enumSystemStore(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		set.add(ders...)
	}
	if len(set.ders) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return set.ders, nil
}

func enumSystemStore(name string) ([][]byte, error) {
	storeName, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	store, err := windows.CertOpenSystemStore(0, storeName)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", name, err)
	}
	defer func() { _ = windows.CertCloseStore(store, 0) }()

	var ders [][]byte
	var cert *windows.CertContext
	for {
		cert, err = windows.CertEnumCertificatesInStore(store, cert)
		if cert == nil {
			break
		}
		if cert.EncodingType&windows.X509_ASN_ENCODING == 0 || cert.Length == 0 {
			continue
		}
		// The context buffer is reused by the next call.
		ders = append(ders, slices.Clone(unsafe.Slice(cert.EncodedCert, cert.Length)))
	}
	var errno windows.Errno
	if err != nil && !(errors.As(err, &errno) && errno == cryptENotFound) {
		return ders, fmt.Errorf("enumerating %s store: %w", name, err)
	}
	return ders, nil
}
