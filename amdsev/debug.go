// Copyright (c) The sevdxe authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

//go:build debug

package amdsev

// debug builds panic on failed assertions
const debug = true
