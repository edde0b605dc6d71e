// Package fingerprints provides a database of well-known third-party
// libraries keyed by the file names of the DLLs they ship. Reports use it to
// name the upstream package a deployed DLL belongs to.
package fingerprints

import "strings"

// LibraryFingerprint describes how to recognise a known library from a DLL name.
//
// Stems match the normalised DLL name exactly or followed by a version or
// variant suffix ("zlib" matches zlib1.dll, zlibd.dll does not). Prefixes
// match any normalised name starting with them.
type LibraryFingerprint struct {
	Name        string // Canonical library name
	Stems       []string
	Prefixes    []string
	PURL        string // Package URL of the upstream project
	Description string
}

// KnownLibraries is the built-in fingerprint database.
var KnownLibraries = []LibraryFingerprint{
	{
		Name:        "boost",
		Prefixes:    []string{"boost_"},
		PURL:        "pkg:conan/boost",
		Description: "Boost C++ Libraries",
	},
	{
		Name:        "openssl",
		Stems:       []string{"ssl", "crypto", "eay32", "ssleay32"},
		PURL:        "pkg:conan/openssl",
		Description: "OpenSSL cryptography library",
	},
	{
		Name:        "zlib",
		Stems:       []string{"zlib", "z", "zlibwapi"},
		PURL:        "pkg:conan/zlib",
		Description: "zlib compression library",
	},
	{
		Name:        "libzip",
		Stems:       []string{"zip"},
		PURL:        "pkg:conan/libzip",
		Description: "libzip - C library for reading and writing zip archives",
	},
	{
		Name:        "libcurl",
		Stems:       []string{"curl", "curl-d"},
		PURL:        "pkg:conan/libcurl",
		Description: "libcurl - the multiprotocol file transfer library",
	},
	{
		Name:        "sqlite3",
		Stems:       []string{"sqlite3"},
		PURL:        "pkg:conan/sqlite3",
		Description: "SQLite embedded database",
	},
	{
		Name:        "googletest",
		Stems:       []string{"gtest", "gtest_main", "gmock", "gmock_main"},
		PURL:        "pkg:github/google/googletest",
		Description: "Google Test C++ testing framework",
	},
	{
		Name:        "protobuf",
		Stems:       []string{"protobuf", "protobufd", "protobuf-lite"},
		PURL:        "pkg:conan/protobuf",
		Description: "Protocol Buffers",
	},
	{
		Name:        "grpc",
		Prefixes:    []string{"grpc"},
		PURL:        "pkg:conan/grpc",
		Description: "gRPC C++ library",
	},
	{
		Name:        "abseil",
		Prefixes:    []string{"abseil_dll", "absl_"},
		PURL:        "pkg:conan/abseil",
		Description: "Abseil C++ common libraries",
	},
	{
		Name:        "fmt",
		Stems:       []string{"fmt", "fmtd"},
		PURL:        "pkg:conan/fmt",
		Description: "{fmt} formatting library",
	},
	{
		Name:        "spdlog",
		Stems:       []string{"spdlog", "spdlogd"},
		PURL:        "pkg:conan/spdlog",
		Description: "Fast C++ logging library",
	},
	{
		Name:        "libpng",
		Stems:       []string{"png", "png16"},
		PURL:        "pkg:conan/libpng",
		Description: "PNG reference library",
	},
	{
		Name:        "libjpeg",
		Stems:       []string{"jpeg", "turbojpeg"},
		PURL:        "pkg:conan/libjpeg-turbo",
		Description: "JPEG image codec",
	},
	{
		Name:        "opencv",
		Prefixes:    []string{"opencv_"},
		PURL:        "pkg:conan/opencv",
		Description: "Open Source Computer Vision Library",
	},
	{
		Name:        "poco",
		Prefixes:    []string{"poco"},
		PURL:        "pkg:conan/poco",
		Description: "POCO C++ Libraries",
	},
	{
		Name:        "qt",
		Prefixes:    []string{"qt5", "qt6"},
		PURL:        "pkg:conan/qt",
		Description: "Qt application framework",
	},
	{
		Name:        "wxwidgets",
		Prefixes:    []string{"wxbase", "wxmsw"},
		PURL:        "pkg:conan/wxwidgets",
		Description: "wxWidgets GUI library",
	},
	{
		Name:        "tbb",
		Stems:       []string{"tbb", "tbbmalloc", "tbbmalloc_proxy"},
		PURL:        "pkg:conan/onetbb",
		Description: "Intel oneAPI Threading Building Blocks",
	},
	{
		Name:        "glfw",
		Stems:       []string{"glfw", "glfw3"},
		PURL:        "pkg:conan/glfw",
		Description: "GLFW window and input library",
	},
	{
		Name:        "yaml-cpp",
		Stems:       []string{"yaml-cpp"},
		PURL:        "pkg:conan/yaml-cpp",
		Description: "YAML parser and emitter for C++",
	},
	{
		Name:        "pugixml",
		Stems:       []string{"pugixml"},
		PURL:        "pkg:conan/pugixml",
		Description: "Light-weight C++ XML processing library",
	},
	{
		Name:        "tinyxml2",
		Stems:       []string{"tinyxml2"},
		PURL:        "pkg:conan/tinyxml2",
		Description: "Simple C++ XML parser",
	},
	{
		Name:        "zstd",
		Stems:       []string{"zstd"},
		PURL:        "pkg:conan/zstd",
		Description: "Zstandard compression library",
	},
	{
		Name:        "lz4",
		Stems:       []string{"lz4"},
		PURL:        "pkg:conan/lz4",
		Description: "LZ4 compression library",
	},
	{
		Name:        "libsodium",
		Stems:       []string{"sodium"},
		PURL:        "pkg:conan/libsodium",
		Description: "Modern, easy-to-use crypto library",
	},
	{
		Name:        "mbedtls",
		Stems:       []string{"mbedtls", "mbedcrypto", "mbedx509"},
		PURL:        "pkg:conan/mbedtls",
		Description: "Mbed TLS cryptography library",
	},
	{
		Name:        "libevent",
		Stems:       []string{"event", "event_core", "event_extra"},
		PURL:        "pkg:conan/libevent",
		Description: "Event notification library",
	},
	{
		Name:        "rocksdb",
		Stems:       []string{"rocksdb"},
		PURL:        "pkg:conan/rocksdb",
		Description: "Persistent key-value store",
	},
	{
		Name:        "leveldb",
		Stems:       []string{"leveldb"},
		PURL:        "pkg:conan/leveldb",
		Description: "Fast key-value storage library",
	},
	{
		Name:        "arrow",
		Stems:       []string{"arrow", "parquet"},
		PURL:        "pkg:conan/arrow",
		Description: "Apache Arrow columnar in-memory analytics",
	},
	{
		Name:        "icu",
		Stems:       []string{"icuuc", "icuin", "icudt", "icuio"},
		PURL:        "pkg:conan/icu",
		Description: "International Components for Unicode",
	},
	{
		Name:        "mingw-runtime",
		Stems:       []string{"gcc_s_seh", "gcc_s_dw2", "stdc++", "gomp", "quadmath", "winpthread", "atomic"},
		PURL:        "pkg:generic/mingw-w64",
		Description: "MinGW-w64 GCC runtime",
	},
	{
		Name:        "msvc-runtime",
		Prefixes:    []string{"vcruntime", "msvcp", "concrt", "vccorlib"},
		PURL:        "pkg:generic/msvc-runtime",
		Description: "Microsoft Visual C++ runtime",
	},
}

// Normalize lower-cases a DLL name and strips the ".dll" extension and a
// leading "lib": "libssl-3-x64.dll" -> "ssl-3-x64".
func Normalize(dll string) string {
	stem := strings.ToLower(dll)
	stem = strings.TrimSuffix(stem, ".dll")
	return strings.TrimPrefix(stem, "lib")
}

// MatchDLL returns the first LibraryFingerprint that recognises the DLL
// name, or nil.
func MatchDLL(dll string) *LibraryFingerprint {
	stem := Normalize(dll)
	for i := range KnownLibraries {
		fp := &KnownLibraries[i]
		for _, p := range fp.Prefixes {
			if strings.HasPrefix(stem, p) {
				return fp
			}
		}
		for _, s := range fp.Stems {
			if matchStem(stem, s) {
				return fp
			}
		}
	}
	return nil
}

// matchStem accepts stem == s, or s followed by a digit, '-', '_' or '.'.
func matchStem(stem, s string) bool {
	if !strings.HasPrefix(stem, s) {
		return false
	}
	if len(stem) == len(s) {
		return true
	}
	switch c := stem[len(s)]; {
	case c >= '0' && c <= '9', c == '-', c == '_', c == '.':
		return true
	}
	return false
}
